package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/services"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/platform/logger"
	"github.com/Mathieux83/Liste-Courses-sub000/pkg/middleware"
)

// ListeHandler is the REST face of the CRUD collaborator. Handlers stay
// thin: persistence and the post-mutation broadcast both live in the
// service.
type ListeHandler struct {
	listes *services.ListeService
}

func NewListeHandler(listes *services.ListeService) *ListeHandler {
	return &ListeHandler{listes: listes}
}

func (h *ListeHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	liste, err := h.listes.CreateListe(r.Context(), userID, req.Name)
	if err != nil {
		log.ErrorContext(r.Context(), "liste handler - create failed", "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, liste)
}

func (h *ListeHandler) List(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	listes, err := h.listes.Listes(r.Context(), userID)
	if err != nil {
		log.ErrorContext(r.Context(), "liste handler - list failed", "err", err)
		writeError(w, err)
		return
	}
	if listes == nil {
		listes = []domain.Liste{}
	}
	writeJSON(w, http.StatusOK, listes)
}

func (h *ListeHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	liste, err := h.listes.GetListe(r.Context(), r.PathValue("id"))
	if err != nil {
		log.ErrorContext(r.Context(), "liste handler - get failed", "list_id", r.PathValue("id"), "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liste)
}

func (h *ListeHandler) Rename(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	liste, err := h.listes.RenameListe(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		log.ErrorContext(r.Context(), "liste handler - rename failed", "list_id", r.PathValue("id"), "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liste)
}

func (h *ListeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	if err := h.listes.DeleteListe(r.Context(), r.PathValue("id")); err != nil {
		log.ErrorContext(r.Context(), "liste handler - delete failed", "list_id", r.PathValue("id"), "err", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListeHandler) AddArticle(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	var req struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	liste, err := h.listes.AddArticle(r.Context(), r.PathValue("id"), req.Name, req.Quantity)
	if err != nil {
		log.ErrorContext(r.Context(), "liste handler - add article failed", "list_id", r.PathValue("id"), "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, liste)
}

func (h *ListeHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	var req struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		Checked  bool   `json:"checked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	liste, err := h.listes.UpdateArticle(r.Context(),
		r.PathValue("id"), r.PathValue("articleID"), req.Name, req.Quantity, req.Checked)
	if err != nil {
		log.ErrorContext(r.Context(), "liste handler - update article failed",
			"list_id", r.PathValue("id"), "article_id", r.PathValue("articleID"), "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liste)
}

func (h *ListeHandler) RemoveArticle(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	liste, err := h.listes.RemoveArticle(r.Context(), r.PathValue("id"), r.PathValue("articleID"))
	if err != nil {
		log.ErrorContext(r.Context(), "liste handler - remove article failed",
			"list_id", r.PathValue("id"), "article_id", r.PathValue("articleID"), "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liste)
}

func requestLogger(r *http.Request) *slog.Logger {
	return logger.FromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrListNotFound), errors.Is(err, domain.ErrArticleNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidListID), errors.Is(err, domain.ErrInvalidUserID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
