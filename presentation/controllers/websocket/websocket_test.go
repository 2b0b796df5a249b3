package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/hilthontt/kindred/application/usecases/authorization"
	"github.com/hilthontt/kindred/application/usecases/realtime"
	"github.com/hilthontt/kindred/domain/model"
	"github.com/hilthontt/kindred/infrastructure/config"
	"github.com/hilthontt/kindred/infrastructure/logger"
	"github.com/hilthontt/kindred/infrastructure/metrics"
	"github.com/hilthontt/kindred/infrastructure/persistence/dbtest"
	persistence "github.com/hilthontt/kindred/infrastructure/persistence/repository"
	"github.com/hilthontt/kindred/infrastructure/security"
	ws "github.com/hilthontt/kindred/infrastructure/websocket"
	"github.com/hilthontt/kindred/presentation/middlewares"
	"gorm.io/gorm"
)

const testTimeout = 2 * time.Second

var testJWT = config.JWTConfig{Secret: "test-secret-that-is-long-enough-32b", Issuer: "kindred"}

type testServer struct {
	url     string
	hub     *ws.Hub
	db      *gorm.DB
	emitter realtime.Emitter
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type serverOptions struct {
	gate    authorization.Gate
	metrics metrics.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return startTestServer(t, serverOptions{})
}

func startTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNopLogger()
	m := opts.metrics
	if m == nil {
		m = metrics.NewNopManager()
	}
	db := dbtest.Open(t)

	hub := ws.NewHub(log, m, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	gate := opts.gate
	if gate == nil {
		gate = authorization.NewGate(persistence.NewAuthorizationRepository(db), time.Second, log, m)
	}
	handlers := NewHandlers(hub, gate, &middlewares.DefaultValidator{}, log, m)
	controller := NewWebSocketController(config.WebsocketConfig{}, security.NewTokenVerifier(testJWT), hub, handlers, ws.NewOriginPolicy(nil, log), log, m)

	router := gin.New()
	router.GET("/ws", controller.HandleConnection)
	srv := httptest.NewServer(router)

	registry := realtime.NewRegistry(log)
	if err := registry.Init(hub); err != nil {
		t.Fatalf("registry.Init() error = %v", err)
	}

	t.Cleanup(func() {
		registry.Teardown()
		cancel()
		<-hub.Done()
		srv.Close()
	})

	return &testServer{
		url:     "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:     hub,
		db:      db,
		emitter: realtime.NewEmitter(registry, log, m),
	}
}

func token(t *testing.T, identity model.Identity) string {
	t.Helper()
	raw, err := security.IssueToken(testJWT, identity, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return raw
}

func (s *testServer) dial(t *testing.T, identity model.Identity) *gorilla.Conn {
	t.Helper()
	before := s.hub.ClientCount()

	header := http.Header{"Authorization": []string{"Bearer " + token(t, identity)}}
	conn, _, err := gorilla.DefaultDialer.Dial(s.url, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	eventually(t, func() bool { return s.hub.ClientCount() > before })
	return conn
}

func userIdentity(id int64) model.Identity {
	return model.Identity{ID: id, Kind: model.KindUser}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func send(t *testing.T, conn *gorilla.Conn, event string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("WriteJSON(%s) error = %v", event, err)
	}
}

func next(t *testing.T, conn *gorilla.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(testTimeout))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return f
}

// expectNext asserts the next frame is event, proving nothing was queued
// ahead of it.
func expectNext(t *testing.T, conn *gorilla.Conn, event string) frame {
	t.Helper()
	f := next(t, conn)
	if f.Event != event {
		t.Fatalf("next event = %q (%s), want %q", f.Event, f.Data, event)
	}
	return f
}

// marker pushes a frame to id's personal room so the caller can assert
// nothing else arrived before it.
func (s *testServer) marker(t *testing.T, conn *gorilla.Conn, id int64) {
	t.Helper()
	s.emitter.EmitToIdentity(id, "test:marker", nil)
	expectNext(t, conn, "test:marker")
}

func (s *testServer) joinMatch(t *testing.T, conn *gorilla.Conn, matchID int64, want int) {
	t.Helper()
	send(t, conn, ws.ChatJoin, matchID)
	eventually(t, func() bool { return s.hub.RoomSize(ws.MatchRoom(matchID)) == want })
}

func TestHandshakeRejections(t *testing.T) {
	s := newTestServer(t)
	expired, err := security.IssueToken(testJWT, userIdentity(1), -time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		header  http.Header
		query   string
		message string
	}{
		{"no credential", nil, "", "Token required"},
		{"empty bearer", http.Header{"Authorization": []string{"Bearer "}}, "", "Token required"},
		{"garbage", http.Header{"Authorization": []string{"Bearer not-a-jwt"}}, "", "Invalid token"},
		{"expired", nil, "?token=" + url.QueryEscape(expired), "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := gorilla.DefaultDialer.Dial(s.url+tt.query, tt.header)
			if err == nil {
				_ = conn.Close()
				t.Fatal("Dial() succeeded")
			}
			if !errors.Is(err, gorilla.ErrBadHandshake) || resp == nil {
				t.Fatalf("Dial() error = %v, want bad handshake", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			var payload struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(body, &payload)
			if payload.Message != tt.message {
				t.Errorf("message = %q, want %q", payload.Message, tt.message)
			}
		})
	}

	if got := s.hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d after rejected handshakes", got)
	}
}

func TestHandshakeCredentialSources(t *testing.T) {
	s := newTestServer(t)

	conn, _, err := gorilla.DefaultDialer.Dial(s.url+"?token="+url.QueryEscape(token(t, userIdentity(5))), nil)
	if err != nil {
		t.Fatalf("query token Dial() error = %v", err)
	}
	defer conn.Close()

	dialer := *gorilla.DefaultDialer
	dialer.Subprotocols = []string{"bearer", token(t, userIdentity(6))}
	conn2, resp, err := dialer.Dial(s.url, nil)
	if err != nil {
		t.Fatalf("subprotocol Dial() error = %v", err)
	}
	defer conn2.Close()
	if got := resp.Header.Get("Sec-Websocket-Protocol"); got != "bearer" {
		t.Errorf("negotiated subprotocol = %q, want bearer", got)
	}

	eventually(t, func() bool { return s.hub.ClientCount() == 2 })
	s.marker(t, conn, 5)
	s.marker(t, conn2, 6)
}

func TestPersonalRoomReachesEveryConnection(t *testing.T) {
	s := newTestServer(t)
	phone := s.dial(t, userIdentity(42))
	laptop := s.dial(t, userIdentity(42))

	if got := s.hub.RoomSize(ws.PersonalRoom(42)); got != 2 {
		t.Fatalf("RoomSize(user:42) = %d, want 2", got)
	}

	s.emitter.EmitConversationUpdate(42, map[string]any{"matchId": 7, "preview": "hey"})
	expectNext(t, phone, ws.ChatConversationUpdate)
	expectNext(t, laptop, ws.ChatConversationUpdate)
}

func TestMatchRoomScenario(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertMatch(t, s.db, 7, 1, 2)

	alice := s.dial(t, userIdentity(1))
	bob := s.dial(t, userIdentity(2))
	mallory := s.dial(t, userIdentity(3))

	// mallory is refused; her next frame proves it without blocking
	send(t, mallory, ws.ChatJoin, 7)
	s.joinMatch(t, alice, 7, 1)
	s.joinMatch(t, bob, 7, 2)

	message := map[string]any{"id": 100, "content": "hello"}
	s.emitter.EmitNewMessage(7, message, 1)

	for _, conn := range []*gorilla.Conn{alice, bob} {
		f := expectNext(t, conn, ws.ChatNewMessage)
		var payload struct {
			MatchID  int64          `json:"matchId"`
			Message  map[string]any `json:"message"`
			SenderID int64          `json:"senderId"`
		}
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if payload.MatchID != 7 || payload.SenderID != 1 || payload.Message["content"] != "hello" {
			t.Errorf("payload = %+v", payload)
		}
	}

	s.marker(t, mallory, 3)
	if got := s.hub.RoomSize(ws.MatchRoom(7)); got != 2 {
		t.Errorf("RoomSize(match:7) = %d, want 2", got)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertMatch(t, s.db, 7, 1, 2)
	alice := s.dial(t, userIdentity(1))

	s.joinMatch(t, alice, 7, 1)
	send(t, alice, ws.ChatJoin, map[string]int64{"matchId": 7})
	send(t, alice, ws.EventJoin, 0)
	// frames on one connection are handled in order; the marker join below
	// completes only after the duplicate join has been processed
	dbtest.InsertRegistration(t, s.db, 9, 1)
	send(t, alice, ws.EventJoin, 9)
	eventually(t, func() bool { return s.hub.RoomSize(ws.EventRoom(9)) == 1 })

	if got := s.hub.RoomSize(ws.MatchRoom(7)); got != 1 {
		t.Fatalf("RoomSize(match:7) = %d, want 1", got)
	}

	s.emitter.EmitNewMessage(7, "once", 2)
	expectNext(t, alice, ws.ChatNewMessage)
	s.marker(t, alice, 1)
}

func TestTypingExcludesSenderAndUsesIdentity(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertMatch(t, s.db, 7, 1, 2)
	alice := s.dial(t, userIdentity(1))
	bob := s.dial(t, userIdentity(2))
	s.joinMatch(t, alice, 7, 1)
	s.joinMatch(t, bob, 7, 2)

	send(t, alice, ws.ChatTyping, map[string]any{"matchId": 7, "isTyping": true, "userId": 99})

	f := expectNext(t, bob, ws.ChatTypingBroadcast)
	var payload ws.TypingPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload != (ws.TypingPayload{MatchID: 7, UserID: 1, IsTyping: true}) {
		t.Errorf("payload = %+v", payload)
	}

	s.marker(t, alice, 1)
}

func TestTypingRequiresMembership(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertMatch(t, s.db, 7, 1, 2)
	alice := s.dial(t, userIdentity(1))
	outsider := s.dial(t, userIdentity(3))
	s.joinMatch(t, alice, 7, 1)

	send(t, outsider, ws.ChatTyping, map[string]any{"matchId": 7, "isTyping": true})
	send(t, outsider, ws.ChatMarkRead, map[string]any{"matchId": 7, "messageId": 5})
	// a join on the outsider's connection is handled after both frames above
	dbtest.InsertRegistration(t, s.db, 4, 3)
	send(t, outsider, ws.EventJoin, 4)
	eventually(t, func() bool { return s.hub.RoomSize(ws.EventRoom(4)) == 1 })

	s.marker(t, alice, 1)
}

func TestMarkReadBroadcast(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertMatch(t, s.db, 7, 1, 2)
	alice := s.dial(t, userIdentity(1))
	bob := s.dial(t, userIdentity(2))
	s.joinMatch(t, alice, 7, 1)
	s.joinMatch(t, bob, 7, 2)

	send(t, bob, ws.ChatMarkRead, map[string]any{"matchId": 7, "messageId": 100})

	f := expectNext(t, alice, ws.ChatMessageRead)
	var payload ws.MessageReadPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.MatchID != 7 || payload.MessageID != 100 || payload.UserID != 2 || payload.ReadAt.IsZero() {
		t.Errorf("payload = %+v", payload)
	}
	s.marker(t, bob, 2)
}

func TestLeaveStopsRoomTraffic(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertMatch(t, s.db, 7, 1, 2)
	alice := s.dial(t, userIdentity(1))
	s.joinMatch(t, alice, 7, 1)

	send(t, alice, ws.ChatLeave, 7)
	eventually(t, func() bool { return s.hub.RoomSize(ws.MatchRoom(7)) == 0 })

	s.emitter.EmitNewMessage(7, "gone", 2)
	s.marker(t, alice, 1)
}

func TestJoinIsReauthorizedEveryTime(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertMatch(t, s.db, 7, 1, 2)
	dbtest.InsertRegistration(t, s.db, 3, 1)

	first := s.dial(t, userIdentity(1))
	s.joinMatch(t, first, 7, 1)
	send(t, first, ws.EventJoin, 3)
	eventually(t, func() bool { return s.hub.RoomSize(ws.EventRoom(3)) == 1 })

	dbtest.DeleteMatch(t, s.db, 7)

	second := s.dial(t, userIdentity(1))
	send(t, second, ws.ChatJoin, 7)
	send(t, second, ws.EventJoin, 3)
	eventually(t, func() bool { return s.hub.RoomSize(ws.EventRoom(3)) == 2 })

	if got := s.hub.RoomSize(ws.MatchRoom(7)); got != 1 {
		t.Errorf("RoomSize(match:7) = %d, want 1 (only the pre-unmatch join)", got)
	}
}

func TestEventRoomBroadcast(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertRegistration(t, s.db, 3, 11)
	dbtest.InsertRegistration(t, s.db, 3, 12)

	first := s.dial(t, userIdentity(11))
	second := s.dial(t, userIdentity(12))
	organizer := s.dial(t, model.Identity{ID: 11, Kind: model.KindOrganizer})

	send(t, organizer, ws.EventJoin, 3)
	send(t, first, ws.EventJoin, map[string]int64{"eventId": 3})
	send(t, second, ws.EventJoin, "3")
	eventually(t, func() bool { return s.hub.RoomSize(ws.EventRoom(3)) == 2 })

	s.emitter.EmitUserJoinedEvent(3, map[string]any{"id": 12, "name": "Sam"})
	expectNext(t, first, ws.EventUserJoined)
	expectNext(t, second, ws.EventUserJoined)

	send(t, second, ws.EventLeave, 3)
	eventually(t, func() bool { return s.hub.RoomSize(ws.EventRoom(3)) == 1 })
}

func TestDisconnectIdentity(t *testing.T) {
	s := newTestServer(t)
	phone := s.dial(t, userIdentity(9))
	laptop := s.dial(t, userIdentity(9))
	bystander := s.dial(t, userIdentity(10))

	s.emitter.DisconnectIdentity(9)

	for _, conn := range []*gorilla.Conn{phone, laptop} {
		_ = conn.SetReadDeadline(time.Now().Add(testTimeout))
		_, _, err := conn.ReadMessage()
		if !gorilla.IsCloseError(err, gorilla.ClosePolicyViolation) {
			t.Errorf("ReadMessage() error = %v, want policy violation close", err)
		}
	}
	eventually(t, func() bool { return s.hub.ClientCount() == 1 })

	s.emitter.DisconnectIdentity(9)
	s.emitter.DisconnectIdentity(404)
	s.marker(t, bystander, 10)
}

func TestMalformedFramesDoNotCloseConnection(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertMatch(t, s.db, 7, 1, 2)
	alice := s.dial(t, userIdentity(1))

	for _, raw := range []string{
		`garbage`,
		`{"data":7}`,
		`{"event":"chat:join"}`,
		`{"event":"chat:join","data":"abc"}`,
		`{"event":"chat:join","data":{}}`,
		`{"event":"chat:join","data":-7}`,
		`{"event":"chat:typing","data":[1,2]}`,
		`{"event":"chat:markRead","data":{"matchId":7}}`,
		`{"event":"presence:ping","data":1}`,
	} {
		if err := alice.WriteMessage(gorilla.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("WriteMessage(%s) error = %v", raw, err)
		}
	}

	s.joinMatch(t, alice, 7, 1)
	s.marker(t, alice, 1)
}

func TestClientCloseLeavesAllRooms(t *testing.T) {
	s := newTestServer(t)
	dbtest.InsertMatch(t, s.db, 7, 1, 2)
	alice := s.dial(t, userIdentity(1))
	s.joinMatch(t, alice, 7, 1)

	_ = alice.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "bye"))
	_ = alice.Close()

	eventually(t, func() bool { return s.hub.ClientCount() == 0 })
	if got := s.hub.RoomSize(ws.MatchRoom(7)); got != 0 {
		t.Errorf("RoomSize(match:7) = %d after close", got)
	}
	if got := s.hub.RoomSize(ws.PersonalRoom(1)); got != 0 {
		t.Errorf("RoomSize(user:1) = %d after close", got)
	}
}
