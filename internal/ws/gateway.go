// Package ws is the realtime edge: it authenticates the socket
// handshake, decodes event envelopes, and dispatches chat turns.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/recall-backend/internal/middleware"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/services"
	"github.com/yungbote/recall-backend/internal/types"
)

const (
	writeWait   = 10 * time.Second
	turnTimeout = 2 * time.Minute
)

// envelope is the wire frame for both directions: an event name plus an
// event-specific data payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// messagePayload is the ai-message event body. Some clients double-encode
// the body as a JSON string; decodePayload accepts both shapes.
type messagePayload struct {
	Chat      string `json:"chat"`
	Content   string `json:"content"`
	MessageID string `json:"messageId"`
	Edited    bool   `json:"edited"`
}

type Gateway struct {
	log      *logger.Logger
	auth     services.AuthService
	turns    services.TurnService
	upgrader websocket.Upgrader
}

func NewGateway(log *logger.Logger, auth services.AuthService, turns services.TurnService) *Gateway {
	return &Gateway{
		log:   log.With("service", "WSGateway"),
		auth:  auth,
		turns: turns,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser origins are already vetted by the CORS layer; the
			// handshake is gated on the auth token instead.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// conn wraps one authenticated socket. Gorilla websockets allow one
// concurrent writer, so every outbound frame goes through the mutex.
type conn struct {
	ws   *websocket.Conn
	mu   sync.Mutex
	user *types.User
}

func (c *conn) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(envelope{Event: event, Data: raw})
}

// HandleUpgrade authenticates the request and, only then, upgrades it.
// The resolved identity is pinned to the connection for its lifetime;
// later token expiry does not terminate an open socket.
func (g *Gateway) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	user, err := g.auth.ResolveIdentity(r.Context(), token)
	if err != nil {
		g.log.Warn("Socket handshake rejected", "error", err.Error())
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("Socket upgrade failed", "error", err.Error())
		return
	}

	c := &conn{ws: ws, user: user}
	g.log.Info("Socket connected", "user_id", user.ID.String())
	go g.readLoop(c)
}

func (g *Gateway) readLoop(c *conn) {
	defer func() {
		c.ws.Close()
		g.log.Info("Socket disconnected", "user_id", c.user.ID.String())
	}()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Warn("Socket read error", "user_id", c.user.ID.String(), "error", err.Error())
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			g.emitError(c, "malformed event envelope")
			continue
		}

		switch env.Event {
		case "ai-message":
			// Each turn runs on its own goroutine so a slow generation
			// never blocks the read loop or later events.
			go g.handleTurn(c, env.Data)
		default:
			g.emitError(c, fmt.Sprintf("unknown event %q", env.Event))
		}
	}
}

func (g *Gateway) handleTurn(c *conn, data json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	in, err := decodePayload(data)
	if err != nil {
		g.emitError(c, err.Error())
		return
	}

	if err := g.turns.HandleMessage(ctx, c.user, in, c); err != nil {
		g.log.Error("Turn failed",
			"user_id", c.user.ID.String(),
			"chat_id", in.ChatID.String(),
			"error", err.Error(),
		)
		// Details stay in the log; the client gets a generic failure.
		g.emitError(c, "failed to process message")
	}
}

func (g *Gateway) emitError(c *conn, message string) {
	if err := c.Emit("ai-error", map[string]any{"message": message}); err != nil {
		g.log.Warn("Failed to emit error event", "error", err.Error())
	}
}

func decodePayload(data json.RawMessage) (services.TurnInput, error) {
	body := []byte(data)
	// Unwrap a string-encoded body first.
	var asString string
	if err := json.Unmarshal(body, &asString); err == nil {
		body = []byte(asString)
	}

	var p messagePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return services.TurnInput{}, fmt.Errorf("malformed message payload")
	}

	chatID, err := uuid.Parse(strings.TrimSpace(p.Chat))
	if err != nil {
		return services.TurnInput{}, fmt.Errorf("invalid chat id")
	}

	in := services.TurnInput{
		ChatID:  chatID,
		Content: p.Content,
		Edited:  p.Edited,
	}
	if p.MessageID != "" {
		msgID, err := uuid.Parse(strings.TrimSpace(p.MessageID))
		if err != nil {
			return services.TurnInput{}, fmt.Errorf("invalid message id")
		}
		in.MessageID = msgID
	}
	return in, nil
}
