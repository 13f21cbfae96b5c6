package rooms

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"pixelchat/internal/events"
	"pixelchat/internal/models"
	"pixelchat/internal/socket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emit struct {
	event   string
	payload any
}

type fakeSession struct {
	mu       sync.Mutex
	emits    []emit
	acks     []socket.AckFunc
	handlers map[string]map[int]socket.Handler
	nextID   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{handlers: make(map[string]map[int]socket.Handler)}
}

func (f *fakeSession) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, emit{event: event, payload: payload})
	return nil
}

func (f *fakeSession) EmitWithAck(event string, payload any, ack socket.AckFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, emit{event: event, payload: payload})
	f.acks = append(f.acks, ack)
	return nil
}

func (f *fakeSession) On(event string, h socket.Handler) func() {
	if event == "" {
		return func() {}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.handlers[event] == nil {
		f.handlers[event] = make(map[int]socket.Handler)
	}
	f.handlers[event][id] = h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[event], id)
	}
}

func (f *fakeSession) fire(t *testing.T, event string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)

	f.mu.Lock()
	hs := make([]socket.Handler, 0, len(f.handlers[event]))
	for _, h := range f.handlers[event] {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(data)
	}
}

func (f *fakeSession) ack(t *testing.T, i int, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	f.mu.Lock()
	ack := f.acks[i]
	f.mu.Unlock()
	ack(data)
}

func newList(t *testing.T, sess *fakeSession) *List {
	t.Helper()
	l := NewList(context.Background(), sess, Config{Self: 7})
	t.Cleanup(l.Close)
	return l
}

func groupRoom(id int64, name string) models.Room {
	return models.Room{
		ID:   id,
		Kind: models.RoomGroup,
		Name: name,
		Members: []models.Member{
			{UserID: 7, RoomID: id, Name: "alice", Admin: true},
			{UserID: 8, RoomID: id, Name: "bob"},
		},
	}
}

func TestSeedAndLookup(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)

	l.Seed([]models.Room{groupRoom(1, "lobby"), {ID: 1, Kind: models.RoomDirect, Name: "bob"}})

	// Direct and group ids may collide; the kind disambiguates.
	group, err := l.Room(models.RoomKey{Kind: models.RoomGroup, ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "lobby", group.Name)

	direct, err := l.Room(models.RoomKey{Kind: models.RoomDirect, ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "bob", direct.Name)

	_, err = l.Room(models.RoomKey{Kind: models.RoomDirect, ID: 99})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNewMessage_UpdatesPreview(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)
	l.Seed([]models.Room{groupRoom(1, "lobby")})

	sess.fire(t, events.Group.NewMessage, models.Message{
		ID: 10, RoomID: 1, SenderID: 8, Body: "hi all", CreatedAt: time.Now(),
	})

	room, err := l.Room(models.RoomKey{Kind: models.RoomGroup, ID: 1})
	require.NoError(t, err)
	require.NotNil(t, room.LastMessage)
	assert.Equal(t, "hi all", room.LastMessage.Body)

	// Most recently active room sorts first.
	rooms := l.Rooms()
	assert.Equal(t, int64(1), rooms[0].ID)
}

func TestMessageDeleted_RedactsPreview(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)
	l.Seed([]models.Room{groupRoom(1, "lobby")})

	sess.fire(t, events.Group.NewMessage, models.Message{ID: 10, RoomID: 1, SenderID: 8, Body: "oops"})
	sess.fire(t, events.Group.MessageDeleted, models.Message{ID: 10, RoomID: 1, SenderID: 8, Body: "oops"})

	room, err := l.Room(models.RoomKey{Kind: models.RoomGroup, ID: 1})
	require.NoError(t, err)
	assert.True(t, room.LastMessage.IsDeleted)
}

func TestTypingSlot_LastEventWinsAndExpires(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)
	l.Seed([]models.Room{groupRoom(1, "lobby")})
	key := models.RoomKey{Kind: models.RoomGroup, ID: 1}

	sess.fire(t, events.Group.UserTyping, models.TypingState{RoomID: 1, UserID: 8, Name: "bob"})
	ts, ok := l.Typing(key)
	require.True(t, ok)
	assert.Equal(t, "bob", ts.Name)

	sess.fire(t, events.Group.UserTyping, models.TypingState{RoomID: 1, UserID: 9, Name: "carol"})
	ts, _ = l.Typing(key)
	assert.Equal(t, "carol", ts.Name)

	sess.fire(t, events.Group.UserStoppedTyping, models.TypingState{RoomID: 1, UserID: 9})
	_, ok = l.Typing(key)
	assert.False(t, ok)

	// Own typing echoes are ignored.
	sess.fire(t, events.Group.UserTyping, models.TypingState{RoomID: 1, UserID: 7, Name: "alice"})
	_, ok = l.Typing(key)
	assert.False(t, ok)
}

func TestMemberUpdated_AddAndRemove(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)
	l.Seed([]models.Room{groupRoom(1, "lobby")})
	key := models.RoomKey{Kind: models.RoomGroup, ID: 1}

	sess.fire(t, events.Group.MemberUpdated, memberUpdate{
		Member: models.Member{UserID: 9, RoomID: 1, Name: "carol"},
		Status: models.MemberAdded,
	})
	room, _ := l.Room(key)
	assert.Len(t, room.Members, 3)

	// Adding the same member twice must not duplicate.
	sess.fire(t, events.Group.MemberUpdated, memberUpdate{
		Member: models.Member{UserID: 9, RoomID: 1, Name: "carol"},
		Status: models.MemberAdded,
	})
	room, _ = l.Room(key)
	assert.Len(t, room.Members, 3)

	sess.fire(t, events.Group.MemberUpdated, memberUpdate{
		Member: models.Member{UserID: 8, RoomID: 1},
		Status: models.MemberRemoved,
	})
	room, _ = l.Room(key)
	require.Len(t, room.Members, 2)
	for _, m := range room.Members {
		assert.NotEqual(t, int64(8), m.UserID)
	}
}

func TestAdminUpdated_ReplacesMemberRecord(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)
	l.Seed([]models.Room{groupRoom(1, "lobby")})

	sess.fire(t, events.Group.AdminUpdated, models.Member{UserID: 8, RoomID: 1, Name: "bob", Admin: true})

	room, _ := l.Room(models.RoomKey{Kind: models.RoomGroup, ID: 1})
	require.Len(t, room.Members, 2)
	for _, m := range room.Members {
		if m.UserID == 8 {
			assert.True(t, m.Admin)
		}
	}
}

func TestRoomEdited_MergesMetadata(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)
	l.Seed([]models.Room{groupRoom(1, "lobby")})

	sess.fire(t, events.Group.RoomEdited, models.Room{ID: 1, Name: "new lobby"})

	room, _ := l.Room(models.RoomKey{Kind: models.RoomGroup, ID: 1})
	assert.Equal(t, "new lobby", room.Name)
	// Members untouched by a metadata edit.
	assert.Len(t, room.Members, 2)
}

func TestCreateRoom_AckInstallsRoom(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)

	var got *models.Room
	require.NoError(t, l.CreateRoom(8, "bob", func(r *models.Room) { got = r }))
	require.Len(t, sess.acks, 1)

	sess.ack(t, 0, models.Room{ID: 3, Name: "bob"})

	require.NotNil(t, got)
	assert.Equal(t, models.RoomDirect, got.Kind)

	room, err := l.Room(models.RoomKey{Kind: models.RoomDirect, ID: 3})
	require.NoError(t, err)
	assert.Equal(t, "bob", room.Name)
}

func TestMakeAdmin_AckAppliesRole(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)
	l.Seed([]models.Room{groupRoom(1, "lobby")})

	var got *models.Member
	require.NoError(t, l.MakeAdmin(1, 8, func(m *models.Member) { got = m }))
	require.Len(t, sess.acks, 1)
	assert.Equal(t, memberPayload{RoomID: 1, UserID: 8}, sess.emits[0].payload)

	sess.ack(t, 0, models.Member{UserID: 8, RoomID: 1, Name: "bob", Admin: true})

	require.NotNil(t, got)
	assert.True(t, got.Admin)

	room, _ := l.Room(models.RoomKey{Kind: models.RoomGroup, ID: 1})
	for _, m := range room.Members {
		if m.UserID == 8 {
			assert.True(t, m.Admin)
		}
	}
}

func TestJoinRoom_UsesNamespaceOfKind(t *testing.T) {
	sess := newFakeSession()
	l := newList(t, sess)

	require.NoError(t, l.JoinRoom(models.RoomKey{Kind: models.RoomGroup, ID: 5}, "alice"))
	require.NoError(t, l.JoinRoom(models.RoomKey{Kind: models.RoomDirect, ID: 5}, "alice"))

	assert.Equal(t, events.Group.JoinRoom, sess.emits[0].event)
	assert.Equal(t, events.Direct.JoinRoom, sess.emits[1].event)
}
