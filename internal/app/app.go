package app

import (
	"net/http"

	"github.com/rs/zerolog"

	"drat/internal/domain"
	"drat/internal/session"
)

// App bundles the dependencies commands run against.
type App struct {
	Config Config
	Logger zerolog.Logger
	Relay  domain.RelayClient
	HTTP   *http.Client
}

func New(cfg Config, logger zerolog.Logger, relay domain.RelayClient, httpClient *http.Client) *App {
	return &App{
		Config: cfg,
		Logger: logger,
		Relay:  relay,
		HTTP:   httpClient,
	}
}

// SessionConfig returns session settings for local talking to peer.
func (a *App) SessionConfig(local, peer domain.Username) session.Config {
	return session.Config{
		Local:            local,
		Peer:             peer,
		MaxSkip:          a.Config.MaxSkip,
		MaxSkippedChains: a.Config.MaxSkippedChains,
		Logger:           a.Logger,
	}
}

// NewPair bootstraps an initiator and responder session between two users.
func (a *App) NewPair(initiator, responder domain.Username) (*session.Session, *session.Session, error) {
	return session.NewPair(
		a.SessionConfig(initiator, responder),
		a.SessionConfig(responder, initiator),
	)
}
