// Package engine orchestrates presence and message delivery: binding
// connections, routing submitted messages to live recipients, buffering them
// in the conversation log for offline ones, and fanning presence snapshots
// out to every connected client.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/svoychat/svoychat/internal/common"
	"github.com/svoychat/svoychat/internal/logging"
	"github.com/svoychat/svoychat/internal/server/chat"
	"github.com/svoychat/svoychat/internal/server/users"
)

// SendRequest carries one message submission. ID and Timestamp are optional:
// a client-supplied ID enables idempotent retries, and an absent timestamp is
// stamped with the server clock.
type SendRequest struct {
	From       string
	To         string
	Ciphertext string
	IV         string
	ID         string
	Timestamp  time.Time
}

// SendResult is the synchronous acknowledgment of a send: the message was
// stored and delivery was attempted. Delivered reports whether a push to the
// recipient's live connection happened; it does not mean the recipient read
// anything.
type SendResult struct {
	ID        string
	Timestamp time.Time
	Delivered bool
}

// MessageEvent is the frame pushed to the recipient's connection and echoed
// to the sender's own connection, so senders render their messages through
// the same path as inbound ones.
type MessageEvent struct {
	Type string `json:"type"`
	chat.Message
}

// PresenceEvent is broadcast to every live connection after each register
// and disconnect.
type PresenceEvent struct {
	Type  string                `json:"type"`
	Users []users.PresenceEntry `json:"users"`
}

type Engine struct {
	registry *users.Registry
	store    chat.Store
	logger   logging.Logger

	// allowUnknownRecipients preserves the permissive observed behavior:
	// messages to usernames that never registered are stored anyway.
	allowUnknownRecipients bool
}

func New(registry *users.Registry, store chat.Store, logger logging.Logger, allowUnknownRecipients bool) *Engine {
	return &Engine{
		registry:               registry,
		store:                  store,
		logger:                 logger.With("module", "engine"),
		allowUnknownRecipients: allowUnknownRecipients,
	}
}

// Register binds conn to username (auto-provisioning a presence-only
// identity if needed) and broadcasts the updated presence snapshot to all
// live connections.
func (e *Engine) Register(ctx context.Context, username string, conn users.Conn) error {
	if err := e.registry.BindConnection(ctx, username, conn); err != nil {
		return err
	}

	e.logger.Info(ctx, "connection registered", "username", users.NormalizeUsername(username))
	e.broadcastPresence(ctx)
	return nil
}

// Disconnect clears the binding held by conn, if it is still current, and
// broadcasts presence. Identity and conversation history are untouched.
func (e *Engine) Disconnect(ctx context.Context, conn users.Conn) {
	username, ok := e.registry.UnbindConnection(conn)
	if !ok {
		return
	}

	e.logger.Info(ctx, "connection closed", "username", username)
	e.broadcastPresence(ctx)
}

// SendMessage validates, stores, and routes one message.
//
// The message is always appended to the conversation log first; a push to
// the recipient's live connection is then attempted once, best-effort, with
// no retry. The sender's own connection receives an echo of the same event.
// The returned SendResult is the delivery contract: "stored and attempted",
// not "read by recipient". An offline recipient must pull history after
// reconnecting; nothing is replayed automatically.
func (e *Engine) SendMessage(ctx context.Context, req SendRequest) (*SendResult, error) {
	from := users.NormalizeUsername(req.From)
	to := users.NormalizeUsername(req.To)
	if from == "" || to == "" || req.Ciphertext == "" {
		return nil, common.ErrValidation
	}

	if !e.allowUnknownRecipients {
		if _, err := e.registry.Lookup(ctx, to); err != nil {
			return nil, err
		}
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	msg := chat.Message{
		ID:              id,
		ConversationKey: chat.Key(from, to),
		From:            from,
		To:              to,
		Ciphertext:      req.Ciphertext,
		IV:              req.IV,
		Timestamp:       ts,
	}

	if err := e.store.Append(ctx, &msg); err != nil {
		e.logger.Error(ctx, "message append failed", "id", id, "error", err)
		return nil, common.ErrInternal
	}

	payload, err := json.Marshal(MessageEvent{Type: "message", Message: msg})
	if err != nil {
		return nil, common.ErrInternal
	}

	delivered := false
	if conn, ok := e.registry.ConnFor(to); ok {
		if err := conn.Send(payload); err != nil {
			e.logger.Warn(ctx, "push to recipient failed", "to", to, "id", id, "error", err)
		} else {
			delivered = true
		}
	}

	if from != to {
		if conn, ok := e.registry.ConnFor(from); ok {
			if err := conn.Send(payload); err != nil {
				e.logger.Warn(ctx, "echo to sender failed", "from", from, "id", id, "error", err)
			}
		}
	}

	return &SendResult{ID: id, Timestamp: ts, Delivered: delivered}, nil
}

// History returns the full conversation log between a and b in append order.
func (e *Engine) History(ctx context.Context, a, b string) ([]chat.Message, error) {
	return e.store.History(ctx, users.NormalizeUsername(a), users.NormalizeUsername(b))
}

// Presence lists every known identity with its online flag.
func (e *Engine) Presence(ctx context.Context) ([]users.PresenceEntry, error) {
	return e.registry.Presence(ctx)
}

// broadcastPresence pushes one consistent presence snapshot to every live
// connection. Failures are best-effort: a dead socket will surface its own
// disconnect shortly.
func (e *Engine) broadcastPresence(ctx context.Context) {
	entries, conns, err := e.registry.Snapshot(ctx)
	if err != nil {
		e.logger.Error(ctx, "presence snapshot failed", "error", err)
		return
	}

	payload, err := json.Marshal(PresenceEvent{Type: "presence", Users: entries})
	if err != nil {
		return
	}

	for _, conn := range conns {
		if err := conn.Send(payload); err != nil {
			e.logger.Debug(ctx, "presence push failed", "error", err)
		}
	}
}

// IsExpected reports whether err belongs to the caller-facing taxonomy, as
// opposed to an internal failure worth logging loudly.
func IsExpected(err error) bool {
	return errors.Is(err, common.ErrValidation) ||
		errors.Is(err, common.ErrUsernameTaken) ||
		errors.Is(err, common.ErrUserNotFound) ||
		errors.Is(err, common.ErrInvalidPassword)
}
