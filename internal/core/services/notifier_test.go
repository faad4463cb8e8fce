package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/contracts"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
)

type broadcastCall struct {
	room    string
	event   string
	payload json.RawMessage
}

type fakeGateway struct {
	calls []broadcastCall
}

func (g *fakeGateway) Register(context.Context, contracts.Client)   {}
func (g *fakeGateway) Unregister(context.Context, contracts.Client) {}
func (g *fakeGateway) Join(context.Context, contracts.Client, string) {
}
func (g *fakeGateway) Leave(context.Context, contracts.Client, string) {}
func (g *fakeGateway) Broadcast(_ context.Context, room, event string, payload json.RawMessage) {
	g.calls = append(g.calls, broadcastCall{room: room, event: event, payload: payload})
}

func (g *fakeGateway) BroadcastToUser(ctx context.Context, userID, event string, payload json.RawMessage) {
	g.Broadcast(ctx, domain.UserRoom(userID), event, payload)
}

type fakeBridge struct {
	published []contracts.BridgeEvent
}

func (b *fakeBridge) Publish(_ context.Context, ev contracts.BridgeEvent) error {
	b.published = append(b.published, ev)
	return nil
}

func (b *fakeBridge) Subscribe(context.Context, func(context.Context, contracts.BridgeEvent)) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyListeChangedBroadcastsFullDocument(t *testing.T) {
	gw := &fakeGateway{}
	br := &fakeBridge{}
	n := NewNotifier(testLogger(), gw, br)

	liste := domain.NewListe("alice", "courses")
	n.NotifyListeChanged(context.Background(), liste)

	assert.Equal(t, 1, len(gw.calls))
	assert.Equal(t, domain.ListeRoom(liste.ID.String()), gw.calls[0].room)
	assert.Equal(t, domain.EventListeUpdated, gw.calls[0].event)

	// The payload is the whole document, never a delta.
	var got domain.Liste
	assert.Equal(t, nil, json.Unmarshal(gw.calls[0].payload, &got))
	assert.Equal(t, liste.ID, got.ID)
	assert.Equal(t, liste.Name, got.Name)

	// Peers get the same event over the bridge.
	assert.Equal(t, 1, len(br.published))
	assert.Equal(t, gw.calls[0].room, br.published[0].Room)
	assert.Equal(t, gw.calls[0].event, br.published[0].Event)
}

func TestNotifyListeCreatedTargetsOwnerRoom(t *testing.T) {
	gw := &fakeGateway{}
	n := NewNotifier(testLogger(), gw, nil)

	liste := domain.NewListe("alice", "courses")
	n.NotifyListeCreated(context.Background(), "alice", liste)

	// No list room exists yet: the owner's user room carries the event.
	assert.Equal(t, 1, len(gw.calls))
	assert.Equal(t, domain.UserRoom("alice"), gw.calls[0].room)
	assert.Equal(t, domain.EventListeCreated, gw.calls[0].event)
}

func TestNotifyListeDeletedTargetsOwnerRoomWithID(t *testing.T) {
	gw := &fakeGateway{}
	n := NewNotifier(testLogger(), gw, nil)

	n.NotifyListeDeleted(context.Background(), "alice", "42")

	assert.Equal(t, 1, len(gw.calls))
	assert.Equal(t, domain.UserRoom("alice"), gw.calls[0].room)
	assert.Equal(t, domain.EventListeDeleted, gw.calls[0].event)
	var payload domain.ListeDeletedPayload
	assert.Equal(t, nil, json.Unmarshal(gw.calls[0].payload, &payload))
	assert.Equal(t, "42", payload.ID)
}
