package chat

import "context"

// Store is the append-only conversation log. Append never reorders or
// rewrites earlier entries; History is a pure read in append order.
type Store interface {
	Append(ctx context.Context, msg *Message) error
	History(ctx context.Context, a, b string) ([]Message, error)
}
