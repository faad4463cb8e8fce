package domain

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestRoomKeys(t *testing.T) {
	assert.Equal(t, "liste-42", ListeRoom("42"))
	assert.Equal(t, "user-abc", UserRoom("abc"))
}

func TestRoomNamespace(t *testing.T) {
	cases := map[string]string{
		"liste-42":                             "liste",
		"user-abc":                             "user",
		"liste-550e8400-e29b-41d4-a716-446655": "liste",
		"plain":                                "plain",
	}
	for room, want := range cases {
		assert.Equal(t, want, RoomNamespace(room))
	}
}

func TestNewListe(t *testing.T) {
	l := NewListe("u1", "courses")
	assert.Equal(t, "u1", l.OwnerID)
	assert.Equal(t, "courses", l.Name)
	assert.NotEqual(t, "", l.ID.String())
	assert.Equal(t, 0, len(l.Articles))
}

func TestNewSessionIDsUnique(t *testing.T) {
	a := NewSession("u1")
	b := NewSession("u1")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "u1", a.UserID)
}
