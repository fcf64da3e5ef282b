package interfaces

import (
	"context"

	domaintypes "drat/internal/domain/types"
)

// RelayClient moves envelopes between parties. Implementations may reorder
// or duplicate deliveries; the ratchet tolerates reordering.
type RelayClient interface {
	SendMessage(ctx context.Context, envelope domaintypes.Envelope) error
	FetchMessages(
		ctx context.Context,
		username domaintypes.Username,
		limit int,
	) ([]domaintypes.Envelope, error)
	AckMessages(ctx context.Context, username domaintypes.Username, count int) error
}

// Mailbox is the relay-side queue of envelopes per recipient.
type Mailbox interface {
	Push(ctx context.Context, envelope domaintypes.Envelope) error
	Peek(
		ctx context.Context,
		username domaintypes.Username,
		limit int,
	) ([]domaintypes.Envelope, error)
	Drop(ctx context.Context, username domaintypes.Username, count int) (int, error)
	Depth(ctx context.Context, username domaintypes.Username) (int, error)
}
