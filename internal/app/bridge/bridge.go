package bridge

import (
	"context"
	"log/slog"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/contracts"
)

// Worker replays mutation broadcasts published by peer nodes into the
// local gateway, so sessions connected to this node converge on documents
// mutated elsewhere.
type Worker struct {
	log     *slog.Logger
	bridge  contracts.EventBridge
	gateway contracts.Gateway
}

func NewWorker(log *slog.Logger, bridge contracts.EventBridge, gateway contracts.Gateway) *Worker {
	return &Worker{
		log:     log,
		bridge:  bridge,
		gateway: gateway,
	}
}

// Run subscribes and relays until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.bridge.Subscribe(ctx, w.relay); err != nil {
		w.log.ErrorContext(ctx, "bridge worker - run - subscribe failed", "err", err)
		return err
	}
	w.log.InfoContext(ctx, "bridge worker - run - subscribed")
	return nil
}

func (w *Worker) relay(ctx context.Context, ev contracts.BridgeEvent) {
	w.gateway.Broadcast(ctx, ev.Room, ev.Event, ev.Payload)
	w.log.InfoContext(ctx, "bridge worker - relay - rebroadcast",
		"room", ev.Room, "event", ev.Event, "origin", ev.Origin)
}
