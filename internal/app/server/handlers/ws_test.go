package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/app/gateway"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/app/server/handlers"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/services"
	"github.com/Mathieux83/Liste-Courses-sub000/pkg/client"
	"github.com/Mathieux83/Liste-Courses-sub000/pkg/middleware"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *gateway.Gateway, *services.TokenService) {
	t.Helper()
	gw := gateway.New(discardLogger(), nil, 0)
	tokens := services.NewTokenService("test-secret")
	wsHandler := handlers.NewWSHandler(gw, nil)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.AuthMiddleware(tokens)(http.HandlerFunc(wsHandler.Handler)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, gw, tokens
}

func newTestClient(t *testing.T, srv *httptest.Server) *client.Client {
	t.Helper()
	c := client.New(client.Options{
		URL:            srv.URL,
		ConnectTimeout: 5 * time.Second,
		RoomOpTimeout:  2 * time.Second,
		ReconnectDelay: 50 * time.Millisecond,
		Logger:         discardLogger(),
	})
	t.Cleanup(c.Disconnect)
	return c
}

func mustToken(t *testing.T, tokens *services.TokenService, userID string) string {
	t.Helper()
	token, err := tokens.GenerateToken(userID)
	assert.Equal(t, nil, err)
	return token
}

// rawDial opens a frame-level connection next to the SDK, authenticating
// through the query parameter like a browser client would.
func rawDial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, domain.HandshakeFrame) {
	t.Helper()
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	assert.Equal(t, nil, err)
	t.Cleanup(func() { conn.Close() })

	var hs domain.HandshakeFrame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	assert.Equal(t, nil, conn.ReadJSON(&hs))
	assert.Equal(t, domain.TypeHandshake, hs.Type)
	_ = conn.SetReadDeadline(time.Time{})
	return conn, hs
}

func waitForMembers(t *testing.T, gw *gateway.Gateway, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(gw.RoomMembers(room)) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d members, have %d", room, want, len(gw.RoomMembers(room)))
}

func TestHandshakeEstablishesSession(t *testing.T) {
	srv, _, tokens := newTestServer(t)
	c := newTestClient(t, srv)

	err := c.Connect(context.Background(), mustToken(t, tokens, "alice"))
	assert.Equal(t, nil, err)
	assert.Equal(t, client.StateConnected, c.State())
	assert.NotEqual(t, "", c.SessionID())

	c.Disconnect()
	assert.Equal(t, client.StateDisconnected, c.State())
}

func TestConnectRejectsBadToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := newTestClient(t, srv)

	err := c.Connect(context.Background(), "not-a-jwt")
	assert.Equal(t, true, errors.Is(err, domain.ErrAuthentication))
	assert.Equal(t, client.StateDisconnected, c.State())
}

func TestBroadcastScopedToJoinedRoom(t *testing.T) {
	srv, gw, tokens := newTestServer(t)
	ctx := context.Background()

	clients := make(map[string]*client.Client)
	updates := make(map[string]chan json.RawMessage)
	for _, user := range []string{"alice", "bob", "carol"} {
		c := newTestClient(t, srv)
		ch := make(chan json.RawMessage, 4)
		c.On(domain.EventListeUpdated, func(p json.RawMessage) { ch <- p })
		assert.Equal(t, nil, c.Connect(ctx, mustToken(t, tokens, user)))
		clients[user] = c
		updates[user] = ch
	}

	for _, user := range []string{"alice", "bob"} {
		res, err := clients[user].JoinListRoom(ctx, "42")
		assert.Equal(t, nil, err)
		assert.Equal(t, "liste-42", res.Room)
	}
	_, err := clients["carol"].JoinListRoom(ctx, "99")
	assert.Equal(t, nil, err)

	doc := json.RawMessage(`{"id":"42","name":"courses","articles":[]}`)
	gw.Broadcast(ctx, "liste-42", domain.EventListeUpdated, doc)

	// Every member of liste-42 converges on the full document, the
	// originator's session included.
	for _, user := range []string{"alice", "bob"} {
		select {
		case got := <-updates[user]:
			assert.Equal(t, string(doc), string(got))
		case <-time.After(2 * time.Second):
			t.Fatalf("%s never received the update", user)
		}
	}
	select {
	case <-updates["carol"]:
		t.Fatal("carol is in liste-99 and must not receive liste-42 updates")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestJoinIsIdempotentForSameRoom(t *testing.T) {
	srv, gw, tokens := newTestServer(t)
	ctx := context.Background()
	c := newTestClient(t, srv)
	assert.Equal(t, nil, c.Connect(ctx, mustToken(t, tokens, "alice")))

	first, err := c.JoinListRoom(ctx, "7")
	assert.Equal(t, nil, err)
	assert.Equal(t, false, first.AlreadyInRoom)

	second, err := c.JoinListRoom(ctx, "7")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, second.AlreadyInRoom)
	assert.Equal(t, 1, len(gw.RoomMembers("liste-7")))
}

func TestJoiningSecondListLeavesFirst(t *testing.T) {
	srv, gw, tokens := newTestServer(t)
	ctx := context.Background()
	c := newTestClient(t, srv)
	assert.Equal(t, nil, c.Connect(ctx, mustToken(t, tokens, "alice")))

	_, err := c.JoinListRoom(ctx, "1")
	assert.Equal(t, nil, err)
	_, err = c.JoinListRoom(ctx, "2")
	assert.Equal(t, nil, err)

	assert.Equal(t, 0, len(gw.RoomMembers("liste-1")))
	assert.Equal(t, 1, len(gw.RoomMembers("liste-2")))
	assert.Equal(t, "liste-2", c.CurrentRoom())
}

func TestLeaveIsAcknowledgedUnconditionally(t *testing.T) {
	srv, _, tokens := newTestServer(t)
	ctx := context.Background()
	c := newTestClient(t, srv)
	assert.Equal(t, nil, c.Connect(ctx, mustToken(t, tokens, "alice")))

	// Never joined: the server still acks and the call resolves clean.
	assert.Equal(t, nil, c.LeaveListRoom(ctx, "999"))
}

func TestTransportCloseRemovesMembership(t *testing.T) {
	srv, gw, tokens := newTestServer(t)
	ctx := context.Background()

	watcher := newTestClient(t, srv)
	left := make(chan json.RawMessage, 1)
	watcher.On(domain.EventMemberLeft, func(p json.RawMessage) { left <- p })
	assert.Equal(t, nil, watcher.Connect(ctx, mustToken(t, tokens, "alice")))
	_, err := watcher.JoinListRoom(ctx, "42")
	assert.Equal(t, nil, err)

	conn, hs := rawDial(t, srv, mustToken(t, tokens, "bob"))
	sendFrame(t, conn, domain.Frame{
		Type: domain.TypeEvent, Event: domain.EventJoinRoom,
		Room: "liste-42", RequestID: "join-1",
	})
	ack := readFrame(t, conn)
	assert.Equal(t, true, ack.OK)
	waitForMembers(t, gw, "liste-42", 2)

	// No leave frame: the transport just dies.
	conn.Close()

	select {
	case raw := <-left:
		var payload domain.MemberLeftPayload
		assert.Equal(t, nil, json.Unmarshal(raw, &payload))
		assert.Equal(t, hs.SessionID, payload.SessionID)
		assert.Equal(t, "liste-42", payload.Room)
	case <-time.After(2 * time.Second):
		t.Fatal("remaining member never notified of the departure")
	}
	waitForMembers(t, gw, "liste-42", 1)
}

func TestJoinRejectsNonListRoom(t *testing.T) {
	srv, gw, tokens := newTestServer(t)

	conn, _ := rawDial(t, srv, mustToken(t, tokens, "mallory"))
	sendFrame(t, conn, domain.Frame{
		Type: domain.TypeEvent, Event: domain.EventJoinRoom,
		Room: "user-alice", RequestID: "join-1",
	})
	ack := readFrame(t, conn)
	assert.Equal(t, false, ack.OK)
	assert.Equal(t, "bad-room", ack.Code)
	assert.Equal(t, 0, len(gw.RoomMembers("user-alice")))
}

func TestRegisterAutoJoinsUserRoom(t *testing.T) {
	srv, gw, tokens := newTestServer(t)

	_, hs := rawDial(t, srv, mustToken(t, tokens, "alice"))
	waitForMembers(t, gw, domain.UserRoom("alice"), 1)
	assert.Equal(t, []string{hs.SessionID}, gw.RoomMembers(domain.UserRoom("alice")))
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame domain.Frame) {
	t.Helper()
	data, err := json.Marshal(frame)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, conn.WriteMessage(websocket.TextMessage, data))
}

func readFrame(t *testing.T, conn *websocket.Conn) domain.Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame domain.Frame
	assert.Equal(t, nil, conn.ReadJSON(&frame))
	_ = conn.SetReadDeadline(time.Time{})
	return frame
}
