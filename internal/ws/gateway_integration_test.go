package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/recall-backend/internal/repos"
	"github.com/yungbote/recall-backend/internal/repos/testutil"
	"github.com/yungbote/recall-backend/internal/services"
	"github.com/yungbote/recall-backend/internal/types"
)

type fakeTurnService struct {
	mu    sync.Mutex
	reply string
	err   error
	got   []services.TurnInput
}

func (f *fakeTurnService) HandleMessage(_ context.Context, _ *types.User, in services.TurnInput, emit services.Emitter) error {
	f.mu.Lock()
	f.got = append(f.got, in)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return emit.Emit("ai-response", map[string]any{
		"content": f.reply,
		"chat":    in.ChatID.String(),
	})
}

func (f *fakeTurnService) inputs() []services.TurnInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]services.TurnInput, len(f.got))
	copy(out, f.got)
	return out
}

func newGatewayServer(t *testing.T, turns services.TurnService) (*httptest.Server, string) {
	t.Helper()
	log := testutil.Logger(t)
	gdb := testutil.DB(t)

	auth, err := services.NewAuthService(log, repos.NewUserRepo(gdb, log), "ws-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	_, token, err := auth.RegisterUser(context.Background(), "Sock", "Tester",
		fmt.Sprintf("ws-%s@example.com", uuid.NewString()), "pw123456")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	g := NewGateway(log, auth, turns)
	srv := httptest.NewServer(http.HandlerFunc(g.HandleUpgrade))
	t.Cleanup(srv.Close)
	return srv, token
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read event: %v", err)
	}
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode event data: %v", err)
	}
	return env.Event, data
}

func TestGatewayRejectsMissingToken(t *testing.T) {
	srv, _ := newGatewayServer(t, &fakeTurnService{reply: "r"})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err == nil {
		t.Fatalf("handshake succeeded without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestGatewayRejectsBadToken(t *testing.T) {
	srv, _ := newGatewayServer(t, &fakeTurnService{reply: "r"})

	header := http.Header{"Authorization": []string{"Bearer garbage"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err == nil {
		t.Fatalf("handshake succeeded with bad token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestGatewayTurnRoundTrip(t *testing.T) {
	turns := &fakeTurnService{reply: "echo back"}
	srv, token := newGatewayServer(t, turns)

	conn := dial(t, srv, http.Header{"Authorization": []string{"Bearer " + token}})
	chatID := uuid.New()
	frame := fmt.Sprintf(`{"event":"ai-message","data":{"chat":"%s","content":"ping"}}`, chatID)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	event, data := readEvent(t, conn)
	if event != "ai-response" {
		t.Fatalf("event = %q, want ai-response", event)
	}
	if data["content"] != "echo back" || data["chat"] != chatID.String() {
		t.Fatalf("response data = %+v", data)
	}
	if got := turns.inputs(); len(got) != 1 || got[0].Content != "ping" {
		t.Fatalf("turn service received %+v", got)
	}
}

func TestGatewayTokenFromQuery(t *testing.T) {
	srv, token := newGatewayServer(t, &fakeTurnService{reply: "r"})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial with query token: %v", err)
	}
	conn.Close()
}

func TestGatewayMalformedPayloadEmitsErrorAndSurvives(t *testing.T) {
	turns := &fakeTurnService{reply: "later"}
	srv, token := newGatewayServer(t, turns)
	conn := dial(t, srv, http.Header{"Authorization": []string{"Bearer " + token}})

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"ai-message","data":{"chat":"not-a-uuid"}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	event, data := readEvent(t, conn)
	if event != "ai-error" {
		t.Fatalf("event = %q, want ai-error", event)
	}
	if data["message"] == "" {
		t.Fatalf("ai-error without message: %+v", data)
	}
	if got := turns.inputs(); len(got) != 0 {
		t.Fatalf("turn dispatched for malformed payload: %+v", got)
	}

	// The connection survives and handles the next, valid event.
	chatID := uuid.New()
	frame := fmt.Sprintf(`{"event":"ai-message","data":{"chat":"%s","content":"ok"}}`, chatID)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write second: %v", err)
	}
	event, _ = readEvent(t, conn)
	if event != "ai-response" {
		t.Fatalf("event after recovery = %q", event)
	}
}

func TestGatewayUnknownEvent(t *testing.T) {
	srv, token := newGatewayServer(t, &fakeTurnService{reply: "r"})
	conn := dial(t, srv, http.Header{"Authorization": []string{"Bearer " + token}})

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"subscribe","data":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	event, _ := readEvent(t, conn)
	if event != "ai-error" {
		t.Fatalf("event = %q, want ai-error", event)
	}
}

func TestGatewayTurnFailureReturnsGenericError(t *testing.T) {
	turns := &fakeTurnService{err: fmt.Errorf("provider exploded: key sk-secret")}
	srv, token := newGatewayServer(t, turns)
	conn := dial(t, srv, http.Header{"Authorization": []string{"Bearer " + token}})

	frame := fmt.Sprintf(`{"event":"ai-message","data":{"chat":"%s","content":"x"}}`, uuid.New())
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}
	event, data := readEvent(t, conn)
	if event != "ai-error" {
		t.Fatalf("event = %q, want ai-error", event)
	}
	msg, _ := data["message"].(string)
	if strings.Contains(msg, "sk-secret") {
		t.Fatalf("internal error detail leaked to client: %q", msg)
	}
}
