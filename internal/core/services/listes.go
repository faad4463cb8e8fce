package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/contracts"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
)

var tracer = otel.Tracer("liste-service")

// ListeService is the CRUD collaborator of the sync core. Every successful
// mutation ends with a notifier call carrying the full updated document;
// the service itself knows nothing about rooms or transports.
type ListeService struct {
	log       *slog.Logger
	listes    domain.ListeRepository
	articles  domain.ArticleRepository
	notifier  INotifier
	txManager contracts.TxManager
}

func NewListeService(
	log *slog.Logger,
	listes domain.ListeRepository,
	articles domain.ArticleRepository,
	notifier INotifier,
	txManager contracts.TxManager,
) *ListeService {
	return &ListeService{
		log:       log,
		listes:    listes,
		articles:  articles,
		notifier:  notifier,
		txManager: txManager,
	}
}

func (s *ListeService) CreateListe(ctx context.Context, ownerID, name string) (*domain.Liste, error) {
	ctx, span := tracer.Start(ctx, "ListeService.CreateListe", trace.WithAttributes(
		attribute.String("owner_id", ownerID),
	))
	defer span.End()
	if ownerID == "" {
		return nil, domain.ErrInvalidUserID
	}
	liste := domain.NewListe(ownerID, name)
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.listes.CreateListe(txCtx, liste)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		s.log.ErrorContext(ctx, "liste - create - insert failed", "owner_id", ownerID, "err", err)
		return nil, err
	}
	s.notifier.NotifyListeCreated(ctx, ownerID, liste)
	s.log.InfoContext(ctx, "liste - create - success", "list_id", liste.ID, "owner_id", ownerID)
	return liste, nil
}

func (s *ListeService) Listes(ctx context.Context, ownerID string) ([]domain.Liste, error) {
	return s.listes.ListesByOwner(ctx, ownerID)
}

func (s *ListeService) GetListe(ctx context.Context, listID string) (*domain.Liste, error) {
	id, err := parseListID(listID)
	if err != nil {
		return nil, err
	}
	return s.listes.GetListe(ctx, id)
}

func (s *ListeService) RenameListe(ctx context.Context, listID, name string) (*domain.Liste, error) {
	ctx, span := tracer.Start(ctx, "ListeService.RenameListe", trace.WithAttributes(
		attribute.String("list_id", listID),
	))
	defer span.End()
	id, err := parseListID(listID)
	if err != nil {
		return nil, err
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.listes.RenameListe(txCtx, id, name)
	}); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "liste - rename - update failed", "list_id", listID, "err", err)
		return nil, err
	}
	return s.broadcastChanged(ctx, id)
}

func (s *ListeService) DeleteListe(ctx context.Context, listID string) error {
	ctx, span := tracer.Start(ctx, "ListeService.DeleteListe", trace.WithAttributes(
		attribute.String("list_id", listID),
	))
	defer span.End()
	id, err := parseListID(listID)
	if err != nil {
		return err
	}
	// Load first: after the delete there is no owner left to notify.
	liste, err := s.listes.GetListe(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.listes.DeleteListe(txCtx, id)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		s.log.ErrorContext(ctx, "liste - delete - delete failed", "list_id", listID, "err", err)
		return err
	}
	s.notifier.NotifyListeDeleted(ctx, liste.OwnerID, listID)
	s.log.InfoContext(ctx, "liste - delete - success", "list_id", listID, "owner_id", liste.OwnerID)
	return nil
}

func (s *ListeService) AddArticle(ctx context.Context, listID, name string, quantity int) (*domain.Liste, error) {
	ctx, span := tracer.Start(ctx, "ListeService.AddArticle", trace.WithAttributes(
		attribute.String("list_id", listID),
	))
	defer span.End()
	id, err := parseListID(listID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		quantity = 1
	}
	article := &domain.Article{
		ID:        uuid.New(),
		ListID:    id,
		Name:      name,
		Quantity:  quantity,
		CreatedAt: time.Now(),
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.articles.CreateArticle(txCtx, article)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		s.log.ErrorContext(ctx, "liste - add article - insert failed", "list_id", listID, "err", err)
		return nil, err
	}
	return s.broadcastChanged(ctx, id)
}

func (s *ListeService) UpdateArticle(ctx context.Context, listID, articleID, name string, quantity int, checked bool) (*domain.Liste, error) {
	ctx, span := tracer.Start(ctx, "ListeService.UpdateArticle", trace.WithAttributes(
		attribute.String("list_id", listID),
		attribute.String("article_id", articleID),
	))
	defer span.End()
	id, err := parseListID(listID)
	if err != nil {
		return nil, err
	}
	aid, err := uuid.Parse(articleID)
	if err != nil {
		return nil, domain.ErrArticleNotFound
	}
	article := &domain.Article{
		ID:       aid,
		ListID:   id,
		Name:     name,
		Quantity: quantity,
		Checked:  checked,
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.articles.UpdateArticle(txCtx, article)
	}); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "liste - update article - update failed",
			"list_id", listID, "article_id", articleID, "err", err)
		return nil, err
	}
	return s.broadcastChanged(ctx, id)
}

func (s *ListeService) RemoveArticle(ctx context.Context, listID, articleID string) (*domain.Liste, error) {
	ctx, span := tracer.Start(ctx, "ListeService.RemoveArticle", trace.WithAttributes(
		attribute.String("list_id", listID),
		attribute.String("article_id", articleID),
	))
	defer span.End()
	id, err := parseListID(listID)
	if err != nil {
		return nil, err
	}
	aid, err := uuid.Parse(articleID)
	if err != nil {
		return nil, domain.ErrArticleNotFound
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.articles.DeleteArticle(txCtx, id, aid)
	}); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "liste - remove article - delete failed",
			"list_id", listID, "article_id", articleID, "err", err)
		return nil, err
	}
	return s.broadcastChanged(ctx, id)
}

// broadcastChanged reloads the full document and hands it to the notifier.
// Broadcasts never carry deltas.
func (s *ListeService) broadcastChanged(ctx context.Context, listID uuid.UUID) (*domain.Liste, error) {
	liste, err := s.listes.GetListe(ctx, listID)
	if err != nil {
		s.log.ErrorContext(ctx, "liste - broadcast changed - reload failed", "list_id", listID, "err", err)
		return nil, err
	}
	s.notifier.NotifyListeChanged(ctx, liste)
	return liste, nil
}

func parseListID(listID string) (uuid.UUID, error) {
	id, err := uuid.Parse(listID)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidListID
	}
	return id, nil
}
