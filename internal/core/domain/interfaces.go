package domain

import (
	"context"

	"github.com/google/uuid"
)

// ListeRepository handles list persistence. GetListe always returns the
// complete document, articles included, since broadcasts never carry deltas.
type ListeRepository interface {
	GetListe(ctx context.Context, listID uuid.UUID) (*Liste, error)
	ListesByOwner(ctx context.Context, ownerID string) ([]Liste, error)
	CreateListe(ctx context.Context, l *Liste) error
	RenameListe(ctx context.Context, listID uuid.UUID, name string) error
	DeleteListe(ctx context.Context, listID uuid.UUID) error
}

// ArticleRepository handles the line items of a list.
type ArticleRepository interface {
	CreateArticle(ctx context.Context, a *Article) error
	UpdateArticle(ctx context.Context, a *Article) error
	DeleteArticle(ctx context.Context, listID, articleID uuid.UUID) error
}
