package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents the authenticated owner of one or more lists.
type User struct {
	ID        string
	CreatedAt time.Time
}

// Liste is a shared shopping list. It is the unit of synchronization:
// every mutation broadcast carries the complete document, articles included.
type Liste struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Articles  []Article `json:"articles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewListe(ownerID, name string) *Liste {
	now := time.Now()
	return &Liste{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   ownerID,
		Articles:  []Article{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Article is a single line item of a list.
type Article struct {
	ID        uuid.UUID `json:"id"`
	ListID    uuid.UUID `json:"list_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Checked   bool      `json:"checked"`
	CreatedAt time.Time `json:"created_at"`
}

// Session represents one active transport connection on the server.
// It is created on a successful handshake and destroyed on transport
// close; it is never persisted.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

func NewSession(userID string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}

// Room namespaces. A session holds at most one "liste" room at a time;
// "user" rooms are independent of that rule.
const (
	NamespaceListe = "liste"
	NamespaceUser  = "user"
)

// ListeRoom returns the broadcast channel key for a list.
func ListeRoom(listID string) string {
	return NamespaceListe + "-" + listID
}

// UserRoom returns the broadcast channel key owned by a user.
func UserRoom(userID string) string {
	return NamespaceUser + "-" + userID
}

// RoomNamespace extracts the namespace prefix from a room key.
// "liste-42" → "liste". A key without a separator is its own namespace.
func RoomNamespace(room string) string {
	if i := strings.IndexByte(room, '-'); i >= 0 {
		return room[:i]
	}
	return room
}
