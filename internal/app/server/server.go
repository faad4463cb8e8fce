package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/app/server/handlers"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/contracts"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/services"
	"github.com/Mathieux83/Liste-Courses-sub000/pkg/middleware"
)

type Server struct {
	mux          *http.ServeMux
	log          *slog.Logger
	name         string
	addr         string
	authHandler  *handlers.AuthHandler
	listeHandler *handlers.ListeHandler
	wsHandler    *handlers.WSHandler
	tokenSvc     *services.TokenService
}

func NewServer(
	log *slog.Logger,
	name, addr string,
	tokenSvc *services.TokenService,
	listeSvc *services.ListeService,
	gateway contracts.Gateway,
) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		log:          log,
		name:         name,
		addr:         addr,
		authHandler:  handlers.NewAuthHandler(tokenSvc),
		listeHandler: handlers.NewListeHandler(listeSvc),
		wsHandler:    handlers.NewWSHandler(gateway, listeSvc),
		tokenSvc:     tokenSvc,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)
	logged := middleware.RequestLogger(s.log)
	traced := middleware.TracerMiddleware(s.name)

	protect := func(h http.HandlerFunc) http.Handler {
		return traced(logged(auth(h)))
	}

	// Public
	s.mux.Handle("POST /auth/token", traced(logged(http.HandlerFunc(s.authHandler.IssueToken))))

	// CRUD collaborator. Every successful mutation ends in a broadcast.
	s.mux.Handle("GET /listes", protect(s.listeHandler.List))
	s.mux.Handle("POST /listes", protect(s.listeHandler.Create))
	s.mux.Handle("GET /listes/{id}", protect(s.listeHandler.Get))
	s.mux.Handle("PATCH /listes/{id}", protect(s.listeHandler.Rename))
	s.mux.Handle("DELETE /listes/{id}", protect(s.listeHandler.Delete))
	s.mux.Handle("POST /listes/{id}/articles", protect(s.listeHandler.AddArticle))
	s.mux.Handle("PATCH /listes/{id}/articles/{articleID}", protect(s.listeHandler.UpdateArticle))
	s.mux.Handle("DELETE /listes/{id}/articles/{articleID}", protect(s.listeHandler.RemoveArticle))

	// Sync transport. The middleware validates the token before the
	// upgrade, so a rejected session never reaches a room operation.
	s.mux.Handle("/ws", protect(s.wsHandler.Handler))
}

func (s *Server) Start() error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket sessions are long-lived.
	}
	s.log.Info("server starting", "addr", s.addr)
	return server.ListenAndServe()
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}
