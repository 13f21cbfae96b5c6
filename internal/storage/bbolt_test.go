package storage

import (
	"path/filepath"
	"testing"
	"time"

	"pixelchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRoomRoundtrip(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	room := models.Room{
		ID:        1,
		Kind:      models.RoomGroup,
		Name:      "lobby",
		Photo:     "lobby.png",
		UpdatedAt: now,
		Members: []models.Member{
			{UserID: 7, RoomID: 1, Name: "alice", Admin: true},
			{UserID: 8, RoomID: 1, Name: "bob"},
		},
		LastMessage: &models.Message{
			ID: 10, RoomID: 1, SenderID: 8, Body: "hi",
			CreatedAt: now, Status: models.StatusSent,
		},
	}
	require.NoError(t, s.UpsertRoom(room))

	rooms, err := s.ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	got := rooms[0]
	assert.Equal(t, room.Name, got.Name)
	assert.Equal(t, room.Kind, got.Kind)
	assert.True(t, got.UpdatedAt.Equal(now))
	assert.Equal(t, room.Members, got.Members)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "hi", got.LastMessage.Body)
}

func TestUpsertRoom_ReplacesExisting(t *testing.T) {
	s := newTestStore(t)

	room := models.Room{ID: 1, Kind: models.RoomDirect, Name: "bob", UpdatedAt: time.Now()}
	require.NoError(t, s.UpsertRoom(room))
	room.Name = "robert"
	require.NoError(t, s.UpsertRoom(room))

	rooms, err := s.ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "robert", rooms[0].Name)
}

func TestRoomsWithSameID_DifferentKindsCoexist(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertRoom(models.Room{ID: 1, Kind: models.RoomDirect, Name: "bob", UpdatedAt: time.Now()}))
	require.NoError(t, s.UpsertRoom(models.Room{ID: 1, Kind: models.RoomGroup, Name: "lobby", UpdatedAt: time.Now()}))

	rooms, err := s.ListRooms()
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestMessageRoundtrip(t *testing.T) {
	s := newTestStore(t)

	key := models.RoomKey{Kind: models.RoomGroup, ID: 1}
	now := time.Now().Truncate(time.Second)
	edited := now.Add(time.Minute)
	msgs := []models.Message{
		{
			ID: 10, RoomID: 1, SenderID: 8, Body: "first",
			CreatedAt: now, Status: models.StatusRead,
			Reactions: []models.Reaction{{ID: 1, MessageID: 10, Emoji: "👍", UserID: 7}},
		},
		{
			ID: 11, RoomID: 1, SenderID: 7, Body: "second (edited)",
			ReplyToID: 10,
			ReplyTo: &models.ReplyPreview{
				ID: 10, SenderID: 8, Body: "first", CreatedAt: now,
			},
			CreatedAt: now, UpdatedAt: &edited, Status: models.StatusSent,
		},
	}
	require.NoError(t, s.SaveMessages(key, msgs))

	got, err := s.ListMessages(key)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Big-endian id keys keep the page in id order.
	assert.Equal(t, int64(10), got[0].ID)
	assert.Equal(t, int64(11), got[1].ID)

	assert.Equal(t, msgs[0].Reactions, got[0].Reactions)
	require.NotNil(t, got[1].UpdatedAt)
	assert.True(t, got[1].UpdatedAt.Equal(edited))
	require.NotNil(t, got[1].ReplyTo)
	assert.Equal(t, "first", got[1].ReplyTo.Body)
}

func TestSaveMessages_SkipsPendingAndReplacesPage(t *testing.T) {
	s := newTestStore(t)
	key := models.RoomKey{Kind: models.RoomDirect, ID: 2}
	now := time.Now()

	require.NoError(t, s.SaveMessages(key, []models.Message{
		{ID: 10, RoomID: 2, SenderID: 8, Body: "old", CreatedAt: now, Status: models.StatusSent},
	}))

	// The unconfirmed message must not reach the disk cache.
	require.NoError(t, s.SaveMessages(key, []models.Message{
		{ID: 11, RoomID: 2, SenderID: 8, Body: "new", CreatedAt: now, Status: models.StatusSent},
		{ClientRef: "tmp-1", RoomID: 2, SenderID: 7, Body: "draft", CreatedAt: now, Status: models.StatusPending},
	}))

	got, err := s.ListMessages(key)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Body)
}

func TestListMessages_EmptyRoom(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListMessages(models.RoomKey{Kind: models.RoomDirect, ID: 9})
	require.NoError(t, err)
	assert.Empty(t, got)
}
