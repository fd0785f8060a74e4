package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/svoychat/svoychat/internal/common"
	"github.com/svoychat/svoychat/internal/logging"
	"github.com/svoychat/svoychat/internal/server/engine"
)

const defaultReadTimeout = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the original relay served browsers from any origin; TLS and origin
		// policy belong to the fronting proxy
		return true
	},
}

// inboundFrame is the union of client frames, discriminated by Type.
type inboundFrame struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq,omitempty"`

	// register
	Username string `json:"username,omitempty"`

	// send
	From       string     `json:"from,omitempty"`
	To         string     `json:"to,omitempty"`
	Ciphertext string     `json:"ciphertext,omitempty"`
	IV         string     `json:"iv,omitempty"`
	ID         string     `json:"id,omitempty"`
	TS         *time.Time `json:"ts,omitempty"`
}

type ackFrame struct {
	Type  string     `json:"type"`
	Seq   int64      `json:"seq,omitempty"`
	OK    bool       `json:"ok"`
	ID    string     `json:"id,omitempty"`
	TS    *time.Time `json:"ts,omitempty"`
	Error string     `json:"error,omitempty"`
}

type Handler struct {
	engine *engine.Engine
	logger logging.Logger
}

func NewHandler(e *engine.Engine, l logging.Logger) *Handler {
	return &Handler{engine: e, logger: l.With("module", "ws")}
}

// Handle upgrades the request and processes frames until the client
// disconnects. Connection loss of any kind funnels into a single engine
// Disconnect transition.
func (h *Handler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response
			return
		}

		ctx := c.Request.Context()
		conn := NewConnection(ws)
		conn.Start()
		defer func() {
			h.engine.Disconnect(ctx, conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))

			var frame inboundFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				h.reply(conn, ackFrame{Type: "error", OK: false, Error: "bad_frame"})
				continue
			}

			switch frame.Type {
			case "register":
				h.handleRegister(c, conn, frame)
			case "send":
				h.handleSend(c, conn, frame)
			default:
				h.reply(conn, ackFrame{Type: "error", Seq: frame.Seq, OK: false, Error: "unknown_type"})
			}
		}
	}
}

func (h *Handler) handleRegister(c *gin.Context, conn *Connection, frame inboundFrame) {
	ctx := c.Request.Context()

	if err := h.engine.Register(ctx, frame.Username, conn); err != nil {
		h.reply(conn, ackFrame{Type: "error", Seq: frame.Seq, OK: false, Error: errorCode(err)})
		return
	}
	h.reply(conn, ackFrame{Type: "registered", Seq: frame.Seq, OK: true})
}

func (h *Handler) handleSend(c *gin.Context, conn *Connection, frame inboundFrame) {
	ctx := c.Request.Context()

	req := engine.SendRequest{
		From:       frame.From,
		To:         frame.To,
		Ciphertext: frame.Ciphertext,
		IV:         frame.IV,
		ID:         frame.ID,
	}
	if frame.TS != nil {
		req.Timestamp = *frame.TS
	}

	res, err := h.engine.SendMessage(ctx, req)
	if err != nil {
		if !engine.IsExpected(err) {
			h.logger.Error(ctx, "send failed", "error", err)
		}
		h.reply(conn, ackFrame{Type: "ack", Seq: frame.Seq, OK: false, Error: errorCode(err)})
		return
	}

	h.reply(conn, ackFrame{Type: "ack", Seq: frame.Seq, OK: true, ID: res.ID, TS: &res.Timestamp})
}

func (h *Handler) reply(conn *Connection, frame ackFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}

// errorCode maps taxonomy sentinels to the terse machine-readable codes
// clients see. Internal detail never crosses the boundary.
func errorCode(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return "invalid"
	case errors.Is(err, common.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, common.ErrUsernameTaken):
		return "username_taken"
	default:
		return "internal"
	}
}
