package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"drat/internal/domain"
)

// HTTPClient talks to a relay Server.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTPClient returns a client for the relay at base. A nil hc means
// http.DefaultClient.
func NewHTTPClient(base string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

var _ domain.RelayClient = (*HTTPClient)(nil)

func (c *HTTPClient) SendMessage(ctx context.Context, env domain.Envelope) error {
	return c.post(ctx, mailboxPath(env.To), env)
}

func (c *HTTPClient) FetchMessages(ctx context.Context, user domain.Username, limit int) ([]domain.Envelope, error) {
	path := mailboxPath(user)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("relay get %s: %s", path, resp.Status)
	}
	var envs []domain.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envs); err != nil {
		return nil, fmt.Errorf("relay get %s: decode: %w", path, err)
	}
	return envs, nil
}

func (c *HTTPClient) AckMessages(ctx context.Context, user domain.Username, count int) error {
	return c.post(ctx, mailboxPath(user)+"/ack", ackRequest{Count: count})
}

func (c *HTTPClient) post(ctx context.Context, path string, in any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay post %s: %s", path, resp.Status)
	}
	return nil
}

func mailboxPath(user domain.Username) string {
	return "/msg/" + url.PathEscape(user.String())
}

type ackRequest struct {
	Count int `json:"count"`
}
