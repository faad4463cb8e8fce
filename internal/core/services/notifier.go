package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/contracts"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
)

var notifierTracer = otel.Tracer("notifier-service")

// INotifier is the contract the CRUD layer calls after every successful
// mutation. The payload is always the complete authoritative document,
// never a delta, so a client that missed intermediate events converges on
// the next broadcast it receives.
type INotifier interface {
	// NotifyListeChanged fans the full updated document out to the
	// list's room.
	NotifyListeChanged(ctx context.Context, liste *domain.Liste)
	// NotifyListeCreated targets the owner's user room: no list room
	// exists yet.
	NotifyListeCreated(ctx context.Context, ownerID string, liste *domain.Liste)
	// NotifyListeDeleted targets the owner's user room: the list room
	// is being torn down.
	NotifyListeDeleted(ctx context.Context, ownerID, listID string)
}

// Notifier bridges the CRUD layer to the gateway, and mirrors every
// broadcast onto the event bridge so peer nodes fan out to their own
// sessions.
type Notifier struct {
	log     *slog.Logger
	gateway contracts.Gateway
	bridge  contracts.EventBridge
}

func NewNotifier(log *slog.Logger, gateway contracts.Gateway, bridge contracts.EventBridge) *Notifier {
	return &Notifier{
		log:     log,
		gateway: gateway,
		bridge:  bridge,
	}
}

func (n *Notifier) NotifyListeChanged(ctx context.Context, liste *domain.Liste) {
	ctx, span := notifierTracer.Start(ctx, "Notifier.NotifyListeChanged", trace.WithAttributes(
		attribute.String("list_id", liste.ID.String()),
	))
	defer span.End()
	payload, err := json.Marshal(liste)
	if err != nil {
		span.RecordError(err)
		n.log.ErrorContext(ctx, "notifier - liste changed - marshal failed", "list_id", liste.ID, "err", err)
		return
	}
	n.emit(ctx, domain.ListeRoom(liste.ID.String()), domain.EventListeUpdated, payload)
}

func (n *Notifier) NotifyListeCreated(ctx context.Context, ownerID string, liste *domain.Liste) {
	ctx, span := notifierTracer.Start(ctx, "Notifier.NotifyListeCreated", trace.WithAttributes(
		attribute.String("list_id", liste.ID.String()),
		attribute.String("owner_id", ownerID),
	))
	defer span.End()
	payload, err := json.Marshal(liste)
	if err != nil {
		span.RecordError(err)
		n.log.ErrorContext(ctx, "notifier - liste created - marshal failed", "list_id", liste.ID, "err", err)
		return
	}
	n.emitToUser(ctx, ownerID, domain.EventListeCreated, payload)
}

func (n *Notifier) NotifyListeDeleted(ctx context.Context, ownerID, listID string) {
	ctx, span := notifierTracer.Start(ctx, "Notifier.NotifyListeDeleted", trace.WithAttributes(
		attribute.String("list_id", listID),
		attribute.String("owner_id", ownerID),
	))
	defer span.End()
	payload, _ := json.Marshal(domain.ListeDeletedPayload{ID: listID})
	n.emitToUser(ctx, ownerID, domain.EventListeDeleted, payload)
}

func (n *Notifier) emit(ctx context.Context, room, event string, payload json.RawMessage) {
	n.gateway.Broadcast(ctx, room, event, payload)
	n.publish(ctx, room, event, payload)
}

func (n *Notifier) emitToUser(ctx context.Context, userID, event string, payload json.RawMessage) {
	n.gateway.BroadcastToUser(ctx, userID, event, payload)
	n.publish(ctx, domain.UserRoom(userID), event, payload)
}

func (n *Notifier) publish(ctx context.Context, room, event string, payload json.RawMessage) {
	if n.bridge == nil {
		return
	}
	if err := n.bridge.Publish(ctx, contracts.BridgeEvent{
		Room:    room,
		Event:   event,
		Payload: payload,
	}); err != nil {
		// Local sessions already got the event; peers converge on the
		// next successful broadcast.
		n.log.ErrorContext(ctx, "notifier - emit - bridge publish failed",
			"room", room, "event", event, "err", err)
	}
}
