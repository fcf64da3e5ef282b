package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"drat/internal/domain"
)

// Step is one scripted message.
type Step struct {
	FromInitiator bool
	Text          string
}

// Delivery reports one message as it was sent or received.
type Delivery struct {
	From      domain.Username
	To        domain.Username
	Plaintext []byte
	Received  bool
}

// DefaultScript is the conversation the demo plays when given no steps.
var DefaultScript = []Step{
	{FromInitiator: true, Text: "Hello Bob!"},
	{FromInitiator: true, Text: "How are u?"},
	{FromInitiator: false, Text: "Hi, Alice!"},
	{FromInitiator: false, Text: "I am fine!"},
	{FromInitiator: true, Text: "Wat's new?"},
}

// ParseStep reads "a:text" (initiator) or "b:text" (responder).
func ParseStep(s string) (Step, error) {
	who, text, ok := strings.Cut(s, ":")
	if !ok {
		return Step{}, fmt.Errorf("step %q: want a:text or b:text", s)
	}
	switch strings.ToLower(strings.TrimSpace(who)) {
	case "a":
		return Step{FromInitiator: true, Text: text}, nil
	case "b":
		return Step{FromInitiator: false, Text: text}, nil
	default:
		return Step{}, fmt.Errorf("step %q: unknown sender %q", s, who)
	}
}

// Exchange plays steps between initiator and responder over relay. Runs of
// consecutive steps from the same sender are sent as one batch before the
// recipient drains its mailbox, so a reordering relay exercises out-of-order
// delivery. Duplicate envelopes are acknowledged and skipped. report, when
// non-nil, sees every send and every successful receive.
func Exchange(
	ctx context.Context,
	relay domain.RelayClient,
	initiator, responder *Session,
	steps []Step,
	ad []byte,
	report func(Delivery),
) error {
	if report == nil {
		report = func(Delivery) {}
	}
	for i := 0; i < len(steps); {
		from, to := initiator, responder
		if !steps[i].FromInitiator {
			from, to = responder, initiator
		}

		j := i
		for ; j < len(steps) && steps[j].FromInitiator == steps[i].FromInitiator; j++ {
			env, err := from.Seal([]byte(steps[j].Text), ad)
			if err != nil {
				return fmt.Errorf("step %d: %w", j, err)
			}
			if err := relay.SendMessage(ctx, env); err != nil {
				return fmt.Errorf("step %d: send: %w", j, err)
			}
			report(Delivery{From: from.Local(), To: to.Local(), Plaintext: []byte(steps[j].Text)})
		}

		if _, err := Drain(ctx, relay, to, func(m domain.DecryptedMessage) {
			report(Delivery{From: m.From, To: m.To, Plaintext: m.Plaintext, Received: true})
		}); err != nil {
			return err
		}
		i = j
	}
	return nil
}

// Drain fetches every envelope queued for s, opens each, and acknowledges
// the whole batch. Envelopes that fail to open are dropped so they cannot
// block the ones queued behind them; their errors are joined into the
// returned error. Duplicates are dropped silently.
func Drain(
	ctx context.Context,
	relay domain.RelayClient,
	s *Session,
	fn func(domain.DecryptedMessage),
) (int, error) {
	envs, err := relay.FetchMessages(ctx, s.Local(), 0)
	if err != nil {
		return 0, fmt.Errorf("fetch for %q: %w", s.Local(), err)
	}

	opened := 0
	var errs []error
	for _, env := range envs {
		pt, err := s.Open(env)
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("dropped envelope %s: %w", env.ID, err))
			continue
		}
		opened++
		if fn != nil {
			fn(domain.DecryptedMessage{
				ID:        env.ID,
				From:      env.From,
				To:        env.To,
				Plaintext: pt,
				Timestamp: env.Timestamp,
			})
		}
	}

	if len(envs) > 0 {
		if err := relay.AckMessages(ctx, s.Local(), len(envs)); err != nil {
			errs = append(errs, fmt.Errorf("ack for %q: %w", s.Local(), err))
		}
	}
	return opened, errors.Join(errs...)
}
