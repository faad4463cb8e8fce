package services

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/domain"
)

// memStore is an in-memory ListeRepository + ArticleRepository pair.
type memStore struct {
	listes  map[uuid.UUID]*domain.Liste
	failTx  error
	txCalls int
}

func newMemStore() *memStore {
	return &memStore{listes: make(map[uuid.UUID]*domain.Liste)}
}

func (m *memStore) GetListe(_ context.Context, listID uuid.UUID) (*domain.Liste, error) {
	l, ok := m.listes[listID]
	if !ok {
		return nil, domain.ErrListNotFound
	}
	cp := *l
	cp.Articles = append([]domain.Article{}, l.Articles...)
	return &cp, nil
}

func (m *memStore) ListesByOwner(_ context.Context, ownerID string) ([]domain.Liste, error) {
	var out []domain.Liste
	for _, l := range m.listes {
		if l.OwnerID == ownerID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) CreateListe(_ context.Context, l *domain.Liste) error {
	m.listes[l.ID] = l
	return nil
}

func (m *memStore) RenameListe(_ context.Context, listID uuid.UUID, name string) error {
	l, ok := m.listes[listID]
	if !ok {
		return domain.ErrListNotFound
	}
	l.Name = name
	return nil
}

func (m *memStore) DeleteListe(_ context.Context, listID uuid.UUID) error {
	if _, ok := m.listes[listID]; !ok {
		return domain.ErrListNotFound
	}
	delete(m.listes, listID)
	return nil
}

func (m *memStore) CreateArticle(_ context.Context, a *domain.Article) error {
	l, ok := m.listes[a.ListID]
	if !ok {
		return domain.ErrListNotFound
	}
	l.Articles = append(l.Articles, *a)
	return nil
}

func (m *memStore) UpdateArticle(_ context.Context, a *domain.Article) error {
	l, ok := m.listes[a.ListID]
	if !ok {
		return domain.ErrListNotFound
	}
	for i := range l.Articles {
		if l.Articles[i].ID == a.ID {
			l.Articles[i].Name = a.Name
			l.Articles[i].Quantity = a.Quantity
			l.Articles[i].Checked = a.Checked
			return nil
		}
	}
	return domain.ErrArticleNotFound
}

func (m *memStore) DeleteArticle(_ context.Context, listID, articleID uuid.UUID) error {
	l, ok := m.listes[listID]
	if !ok {
		return domain.ErrListNotFound
	}
	for i := range l.Articles {
		if l.Articles[i].ID == articleID {
			l.Articles = append(l.Articles[:i], l.Articles[i+1:]...)
			return nil
		}
	}
	return domain.ErrArticleNotFound
}

// WithTx makes memStore double as the TxManager: the callback runs
// directly, optionally failing first.
func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txCalls++
	if m.failTx != nil {
		return m.failTx
	}
	return fn(ctx)
}

type recordingNotifier struct {
	changed []*domain.Liste
	created []*domain.Liste
	deleted []string
}

func (n *recordingNotifier) NotifyListeChanged(_ context.Context, liste *domain.Liste) {
	n.changed = append(n.changed, liste)
}

func (n *recordingNotifier) NotifyListeCreated(_ context.Context, _ string, liste *domain.Liste) {
	n.created = append(n.created, liste)
}

func (n *recordingNotifier) NotifyListeDeleted(_ context.Context, _ string, listID string) {
	n.deleted = append(n.deleted, listID)
}

func newTestService() (*ListeService, *memStore, *recordingNotifier) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	svc := NewListeService(testLogger(), store, store, notifier, store)
	return svc, store, notifier
}

func TestCreateListeNotifiesOwner(t *testing.T) {
	svc, store, notifier := newTestService()

	liste, err := svc.CreateListe(context.Background(), "alice", "courses")
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(store.listes))
	assert.Equal(t, 1, len(notifier.created))
	assert.Equal(t, liste.ID, notifier.created[0].ID)
	assert.Equal(t, 0, len(notifier.changed))
}

func TestCreateListeRequiresOwner(t *testing.T) {
	svc, _, notifier := newTestService()

	_, err := svc.CreateListe(context.Background(), "", "courses")
	assert.Equal(t, true, errors.Is(err, domain.ErrInvalidUserID))
	assert.Equal(t, 0, len(notifier.created))
}

func TestAddArticleBroadcastsFullDocument(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()
	liste, _ := svc.CreateListe(ctx, "alice", "courses")

	got, err := svc.AddArticle(ctx, liste.ID.String(), "lait", 0)
	assert.Equal(t, nil, err)
	// Zero quantity means one item, and the returned document carries the
	// new article already.
	assert.Equal(t, 1, len(got.Articles))
	assert.Equal(t, 1, got.Articles[0].Quantity)

	assert.Equal(t, 1, len(notifier.changed))
	assert.Equal(t, 1, len(notifier.changed[0].Articles))
}

func TestUpdateArticleChecksItem(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()
	liste, _ := svc.CreateListe(ctx, "alice", "courses")
	withArticle, _ := svc.AddArticle(ctx, liste.ID.String(), "lait", 2)
	article := withArticle.Articles[0]

	got, err := svc.UpdateArticle(ctx, liste.ID.String(), article.ID.String(), "lait", 2, true)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, got.Articles[0].Checked)
	assert.Equal(t, 2, len(notifier.changed))
}

func TestRemoveArticleBroadcasts(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()
	liste, _ := svc.CreateListe(ctx, "alice", "courses")
	withArticle, _ := svc.AddArticle(ctx, liste.ID.String(), "lait", 1)

	got, err := svc.RemoveArticle(ctx, liste.ID.String(), withArticle.Articles[0].ID.String())
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(got.Articles))
	assert.Equal(t, 2, len(notifier.changed))
}

func TestDeleteListeNotifiesWithID(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()
	liste, _ := svc.CreateListe(ctx, "alice", "courses")

	assert.Equal(t, nil, svc.DeleteListe(ctx, liste.ID.String()))
	assert.Equal(t, 0, len(store.listes))
	assert.Equal(t, []string{liste.ID.String()}, notifier.deleted)
}

func TestFailedMutationDoesNotBroadcast(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()
	liste, _ := svc.CreateListe(ctx, "alice", "courses")

	store.failTx = errors.New("deadlock")
	_, err := svc.AddArticle(ctx, liste.ID.String(), "lait", 1)
	assert.NotEqual(t, nil, err)
	assert.Equal(t, 0, len(notifier.changed))
}

func TestBadIDsYieldDomainErrors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.GetListe(ctx, "not-a-uuid")
	assert.Equal(t, true, errors.Is(err, domain.ErrInvalidListID))

	_, err = svc.GetListe(ctx, uuid.NewString())
	assert.Equal(t, true, errors.Is(err, domain.ErrListNotFound))

	liste, _ := svc.CreateListe(ctx, "alice", "courses")
	_, err = svc.UpdateArticle(ctx, liste.ID.String(), "nope", "x", 1, false)
	assert.Equal(t, true, errors.Is(err, domain.ErrArticleNotFound))
}
