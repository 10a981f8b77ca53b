package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"pairchat/domain/event"
	"pairchat/projection"
	"pairchat/repositories"
	"pairchat/runtime"
	"pairchat/runtime/workers"
	"pairchat/search"
	"pairchat/services"
)

type gatewayFixture struct {
	server *httptest.Server
	auth   services.IAuthService
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	conversations := repositories.NewConversationRepository(db, log)
	messages := repositories.NewMessageRepository(db, log)
	users := repositories.NewUserRepository(db)

	registry := runtime.NewRegistry()
	sidebar := projection.NewSidebar(conversations, messages, users, registry)
	events := make(chan event.DomainEvent, 256)
	coordinator := runtime.NewCoordinator(log, conversations, messages, users, sidebar, events, 5*time.Second)
	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log), registry,
		coordinator, sidebar, users, events, time.Second, time.Minute)

	index := search.NewMessageIndex(writer, log)

	authService := services.NewAuthService(users, time.Hour)
	chatService := services.NewChatService(orchestrator, index)
	userService := services.NewUserService(users)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = orchestrator.Start(ctx) }()
	t.Cleanup(cancel)

	gateway := NewServer(log, authService, chatService, userService, 64)
	ts := httptest.NewServer(gateway.Routes())
	t.Cleanup(ts.Close)

	return &gatewayFixture{server: ts, auth: authService}
}

func (f *gatewayFixture) register(t *testing.T, name string) (token, userID string) {
	t.Helper()
	tok, id, err := f.auth.Register(name, name+"@example.com", "Str0ng&Secret!!")
	require.NoError(t, err)
	return string(tok), id
}

func (f *gatewayFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// awaitFrame reads frames until the wanted event arrives, skipping
// interleaved broadcasts (presence, sidebar pushes).
func awaitFrame(t *testing.T, conn *websocket.Conn, eventName string) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Event == eventName {
			return frame
		}
	}
}

func Test_Handshake_should_reject_missing_token(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func Test_Handshake_should_reject_garbage_token(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=not.a.jwt"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func Test_Register_endpoint_should_issue_token(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	body, _ := json.Marshal(map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "Str0ng&Secret!!",
	})
	resp, err := http.Post(f.server.URL+"/auth/register", "application/json", bytes.NewReader(body))
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusCreated, resp.StatusCode)

	var out tokenResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&out))
	req.NotEmpty(out.Token)
	req.NotEmpty(out.UserID)
}

func Test_Login_endpoint_should_reject_wrong_password(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	f.register(t, "alice")

	body, _ := json.Marshal(map[string]string{
		"email":    "alice@example.com",
		"password": "Wr0ng&Password!!",
	})
	resp, err := http.Post(f.server.URL+"/auth/login", "application/json", bytes.NewReader(body))
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func Test_Connected_sessions_should_receive_presence_broadcast(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	aliceToken, aliceID := f.register(t, "alice")
	conn := f.dial(t, aliceToken)

	frame := awaitFrame(t, conn, eventPresenceUpdate)

	var payload presenceOut
	req.NoError(json.Unmarshal(frame.Payload, &payload))
	req.Len(payload.Online, 1)
	req.Equal(aliceID, payload.Online[0].ID)
}

func Test_SendMessage_should_deliver_to_both_participants(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	aliceToken, aliceID := f.register(t, "alice")
	bobToken, bobID := f.register(t, "bob")

	alice := f.dial(t, aliceToken)
	bob := f.dial(t, bobToken)

	// GIVEN both sessions online
	awaitFrame(t, alice, eventPresenceUpdate)
	awaitFrame(t, bob, eventPresenceUpdate)

	// WHEN alice sends a message to bob
	payload, _ := json.Marshal(sendMessageIn{Receiver: bobID, Text: "hello bob"})
	req.NoError(alice.WriteJSON(Frame{Event: eventSendMessage, Payload: payload}))

	// THEN both ends receive the delivery with the posted message
	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := awaitFrame(t, conn, eventMessageDelivered)

		var delivered deliveredOut
		req.NoError(json.Unmarshal(frame.Payload, &delivered))
		req.NotNil(delivered.Posted)
		req.Equal(aliceID, delivered.Posted.Sender)
		req.Equal("hello bob", delivered.Posted.Text)
		req.Len(delivered.Messages, 1)
	}
}

func Test_RequestHistory_should_reply_with_counterpart_and_messages(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	aliceToken, _ := f.register(t, "alice")
	_, bobID := f.register(t, "bob")

	alice := f.dial(t, aliceToken)

	payload, _ := json.Marshal(counterpartIn{Counterpart: bobID})
	req.NoError(alice.WriteJSON(Frame{Event: eventRequestHistory, Payload: payload}))

	counterpartFrame := awaitFrame(t, alice, eventCounterpart)
	var profile wireIdentity
	req.NoError(json.Unmarshal(counterpartFrame.Payload, &profile))
	req.Equal(bobID, profile.ID)
	req.Equal("bob", profile.Name)

	historyFrame := awaitFrame(t, alice, eventHistory)
	var history historyOut
	req.NoError(json.Unmarshal(historyFrame.Payload, &history))
	req.Equal(bobID, history.Counterpart)
	req.Empty(history.Messages)
}

func Test_Unknown_event_should_return_validation_error(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	aliceToken, _ := f.register(t, "alice")
	alice := f.dial(t, aliceToken)

	req.NoError(alice.WriteJSON(Frame{Event: "poke"}))

	frame := awaitFrame(t, alice, eventError)
	var wireErr errorOut
	req.NoError(json.Unmarshal(frame.Payload, &wireErr))
	req.Equal("validation", string(wireErr.Kind))
	req.False(wireErr.Retryable)
}
