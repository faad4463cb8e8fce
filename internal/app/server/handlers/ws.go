package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/app/server/ws"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/contracts"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/services"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/platform/logger"
	"github.com/Mathieux83/Liste-Courses-sub000/pkg/middleware"
)

type WSHandler struct {
	gateway contracts.Gateway
	listes  *services.ListeService
}

func NewWSHandler(gateway contracts.Gateway, listes *services.ListeService) *WSHandler {
	return &WSHandler{
		gateway: gateway,
		listes:  listes,
	}
}

// Handler upgrades an authenticated request into a transport session.
// Authentication already happened in the middleware: a rejected token
// never reaches any room operation.
func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	// The session outlives the HTTP request context.
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	var upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", "err", err)
		cancel()
		return
	}
	defer conn.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - ws closed", "user_id", userID)
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)

	session := domain.NewSession(userID)
	if err := conn.WriteJSON(domain.NewHandshakeFrame(session.ID, userID)); err != nil {
		log.ErrorContext(r.Context(), "ws handler - handshake - write failed", "err", err)
		return
	}
	span.SetAttributes(attribute.String("sync.session_id", session.ID))
	log.InfoContext(r.Context(), "ws handler - ws connection established",
		"session_id", session.ID, "user_id", userID)

	client := ws.NewClient(ctx, socket, session.ID, userID)
	s.gateway.Register(ctx, client)
	defer s.gateway.Unregister(sessionCtx, client)
	defer client.Close()

	sessLog := log.With("session_id", session.ID, "user_id", userID)
	socket.ReadLoop(func(data []byte) {
		s.dispatch(ctx, sessLog, client, data)
	})
}

// dispatch routes one inbound frame. Join/leave are acknowledged by
// request id; anything else is an application event the server has no
// handler for (mutations go through the REST layer) and is dropped.
func (s *WSHandler) dispatch(ctx context.Context, log *slog.Logger, client contracts.Client, data []byte) {
	var frame domain.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Error("ws handler - dispatch - wrong frame format", "err", err)
		return
	}
	if frame.Type != domain.TypeEvent {
		return
	}
	switch frame.Event {
	case domain.EventJoinRoom:
		s.handleJoin(ctx, log, client, frame)
	case domain.EventLeaveRoom:
		s.gateway.Leave(ctx, client, frame.Room)
		s.ack(ctx, client, domain.NewAckFrame(frame.RequestID, frame.Room))
	default:
		log.Info("ws handler - dispatch - unhandled event", "event", frame.Event)
	}
}

func (s *WSHandler) handleJoin(ctx context.Context, log *slog.Logger, client contracts.Client, frame domain.Frame) {
	listID, ok := strings.CutPrefix(frame.Room, domain.NamespaceListe+"-")
	if !ok || listID == "" {
		s.ack(ctx, client, domain.NewAckError(frame.RequestID, "bad-room", "only liste rooms are joinable"))
		return
	}
	s.gateway.Join(ctx, client, frame.Room)
	s.ack(ctx, client, domain.NewAckFrame(frame.RequestID, frame.Room))

	// A (re)join is a full resynchronization point: push the current
	// document to the joining session only, off the ack path.
	if s.listes == nil {
		return
	}
	go func() {
		pushCtx := context.WithoutCancel(ctx)
		liste, err := s.listes.GetListe(pushCtx, listID)
		if err != nil {
			log.ErrorContext(pushCtx, "ws handler - handle join - resync load failed",
				"room", frame.Room, "err", err)
			return
		}
		payload, _ := json.Marshal(liste)
		raw, _ := json.Marshal(domain.NewEventFrame(domain.EventListeUpdated, frame.Room, payload))
		if err := client.Send(pushCtx, raw); err != nil {
			log.ErrorContext(pushCtx, "ws handler - handle join - resync send failed",
				"room", frame.Room, "err", err)
		}
	}()
}

func (s *WSHandler) ack(ctx context.Context, client contracts.Client, frame domain.Frame) {
	raw, _ := json.Marshal(frame)
	_ = client.Send(ctx, raw)
}
