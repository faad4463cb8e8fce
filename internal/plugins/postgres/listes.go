package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
)

type ListeRepo struct {
	db *sql.DB
}

func NewListeRepo(db *sql.DB) *ListeRepo {
	return &ListeRepo{db: db}
}

/*
	-- Listes
	CREATE TABLE listes (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		owner_id    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	-- Articles
	CREATE TABLE articles (
		id          UUID PRIMARY KEY,
		liste_id    UUID NOT NULL REFERENCES listes(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		quantity    INT NOT NULL DEFAULT 1,
		checked     BOOLEAN NOT NULL DEFAULT false,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

// GetListe loads the complete document, articles included. Broadcasts carry
// full documents, so every read here is a full read.
func (r *ListeRepo) GetListe(ctx context.Context, listID uuid.UUID) (*domain.Liste, error) {
	exec := GetExecutor(ctx, r.db)
	l := &domain.Liste{ID: listID, Articles: []domain.Article{}}
	query := `SELECT name, owner_id, created_at, updated_at FROM listes WHERE id = $1`
	err := exec.QueryRowContext(ctx, query, listID).
		Scan(&l.Name, &l.OwnerID, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrListNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx,
		`SELECT id, name, quantity, checked, created_at
         FROM articles WHERE liste_id = $1 ORDER BY created_at, id`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a := domain.Article{ListID: listID}
		if err := rows.Scan(&a.ID, &a.Name, &a.Quantity, &a.Checked, &a.CreatedAt); err != nil {
			return nil, err
		}
		l.Articles = append(l.Articles, a)
	}
	return l, rows.Err()
}

func (r *ListeRepo) ListesByOwner(ctx context.Context, ownerID string) ([]domain.Liste, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM listes WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Liste
	for rows.Next() {
		l := domain.Liste{OwnerID: ownerID, Articles: []domain.Article{}}
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *ListeRepo) CreateListe(ctx context.Context, l *domain.Liste) error {
	exec := GetExecutor(ctx, r.db)
	query := `INSERT INTO listes (id, name, owner_id, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5)`
	_, err := exec.ExecContext(ctx, query, l.ID, l.Name, l.OwnerID, l.CreatedAt, l.UpdatedAt)
	return err
}

func (r *ListeRepo) RenameListe(ctx context.Context, listID uuid.UUID, name string) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`UPDATE listes SET name = $2, updated_at = now() WHERE id = $1`, listID, name)
	if err != nil {
		return err
	}
	if err := requireRow(result); err != nil {
		return domain.ErrListNotFound
	}
	return nil
}

func (r *ListeRepo) DeleteListe(ctx context.Context, listID uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM listes WHERE id = $1`, listID)
	if err != nil {
		return err
	}
	if err := requireRow(result); err != nil {
		return domain.ErrListNotFound
	}
	return nil
}

type ArticleRepo struct {
	db *sql.DB
}

func NewArticleRepo(db *sql.DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) CreateArticle(ctx context.Context, a *domain.Article) error {
	exec := GetExecutor(ctx, r.db)
	query := `INSERT INTO articles (id, liste_id, name, quantity, checked, created_at)
              VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := exec.ExecContext(ctx, query, a.ID, a.ListID, a.Name, a.Quantity, a.Checked, a.CreatedAt)
	if err != nil {
		return err
	}
	// Any article mutation bumps the document version timestamp.
	_, err = exec.ExecContext(ctx, `UPDATE listes SET updated_at = now() WHERE id = $1`, a.ListID)
	return err
}

func (r *ArticleRepo) UpdateArticle(ctx context.Context, a *domain.Article) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`UPDATE articles SET name = $3, quantity = $4, checked = $5
         WHERE id = $1 AND liste_id = $2`, a.ID, a.ListID, a.Name, a.Quantity, a.Checked)
	if err != nil {
		return err
	}
	if err := requireRow(result); err != nil {
		return domain.ErrArticleNotFound
	}
	_, err = exec.ExecContext(ctx, `UPDATE listes SET updated_at = now() WHERE id = $1`, a.ListID)
	return err
}

func (r *ArticleRepo) DeleteArticle(ctx context.Context, listID, articleID uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`DELETE FROM articles WHERE id = $1 AND liste_id = $2`, articleID, listID)
	if err != nil {
		return err
	}
	if err := requireRow(result); err != nil {
		return domain.ErrArticleNotFound
	}
	_, err = exec.ExecContext(ctx, `UPDATE listes SET updated_at = now() WHERE id = $1`, listID)
	return err
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
