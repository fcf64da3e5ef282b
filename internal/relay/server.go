package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"drat/internal/domain"
	"drat/internal/observability"
	"drat/internal/protocol/ratchet"
)

// maxEnvelopeBytes bounds a POSTed envelope body.
const maxEnvelopeBytes = 1 << 20

// Server exposes a Mailbox over HTTP.
type Server struct {
	Router  *chi.Mux
	Logger  zerolog.Logger
	mailbox domain.Mailbox
	metrics *observability.RelayMetrics
	gather  prometheus.Gatherer
}

// NewServer configures the router with baseline middleware, health and
// mailbox routes. Metrics are registered on reg.
func NewServer(mailbox domain.Mailbox, logger zerolog.Logger, reg *prometheus.Registry) *Server {
	s := &Server{
		Router:  chi.NewRouter(),
		Logger:  logger,
		mailbox: mailbox,
		metrics: observability.NewRelayMetrics(reg),
		gather:  reg,
	}

	r := s.Router
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(observability.RequestLogger(logger))

	r.Get("/healthz", s.health)
	r.Route("/msg/{user}", func(r chi.Router) {
		r.Post("/", s.push)
		r.Get("/", s.list)
		r.Post("/ack", s.ack)
	})
	return s
}

// MetricsHandler serves the server's Prometheus collectors.
func (s *Server) MetricsHandler() http.Handler {
	return observability.MetricsHandler(s.gather)
}

// Start serves the relay on addr and metrics on metricsAddr until ctx ends.
func (s *Server) Start(ctx context.Context, addr, metricsAddr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:    metricsAddr,
		Handler: s.MetricsHandler(),
	}

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	s.Logger.Info().Str("addr", addr).Str("metrics_addr", metricsAddr).Msg("relay starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.Logger.Info().Msg("relay stopped")
	return nil
}

type healthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   "drat-relay",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) push(w http.ResponseWriter, r *http.Request) {
	user := domain.Username(chi.URLParam(r, "user"))
	var env domain.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEnvelopeBytes)).Decode(&env); err != nil {
		s.reject(w, "bad envelope: "+err.Error())
		return
	}
	switch {
	case env.To != user:
		s.reject(w, "recipient does not match path")
		return
	case env.From == "":
		s.reject(w, "missing sender")
		return
	case len(env.Header) != ratchet.HeaderSize:
		s.reject(w, "header must be "+strconv.Itoa(ratchet.HeaderSize)+" bytes")
		return
	}

	if env.Timestamp == 0 {
		env.Timestamp = time.Now().Unix()
	}
	if err := s.mailbox.Push(r.Context(), env); err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.Envelopes.WithLabelValues(observability.OpPushed).Inc()
	s.observeDepth(r.Context(), user)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	user := domain.Username(chi.URLParam(r, "user"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.reject(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	envs, err := s.mailbox.Peek(r.Context(), user, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if envs == nil {
		envs = []domain.Envelope{}
	}
	s.metrics.Envelopes.WithLabelValues(observability.OpFetched).Add(float64(len(envs)))
	writeJSON(w, http.StatusOK, envs)
}

func (s *Server) ack(w http.ResponseWriter, r *http.Request) {
	user := domain.Username(chi.URLParam(r, "user"))
	var req ackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil || req.Count < 0 {
		s.reject(w, "body must be {\"count\": n} with n >= 0")
		return
	}

	n, err := s.mailbox.Drop(r.Context(), user, req.Count)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.Envelopes.WithLabelValues(observability.OpAcked).Add(float64(n))
	s.observeDepth(r.Context(), user)
	writeJSON(w, http.StatusOK, ackRequest{Count: n})
}

func (s *Server) observeDepth(ctx context.Context, user domain.Username) {
	depth, err := s.mailbox.Depth(ctx, user)
	if err != nil {
		s.Logger.Warn().Err(err).Str("user", user.String()).Msg("queue depth")
		return
	}
	s.metrics.QueueDepth.WithLabelValues(user.String()).Set(float64(depth))
}

func (s *Server) reject(w http.ResponseWriter, msg string) {
	s.metrics.Envelopes.WithLabelValues(observability.OpRejected).Inc()
	http.Error(w, msg, http.StatusBadRequest)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.Logger.Error().Err(err).Msg("mailbox")
	http.Error(w, "mailbox unavailable", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
