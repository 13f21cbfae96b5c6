// Package rooms maintains the conversation list: last-message previews,
// group membership and roles, and the per-room typing indicator. Rooms
// are never hard-deleted client-side; the registry lives for the session.
package rooms

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"pixelchat/internal/events"
	"pixelchat/internal/models"
	"pixelchat/internal/socket"

	"github.com/c-pro/geche"
)

type session interface {
	Emit(event string, payload any) error
	EmitWithAck(event string, payload any, ack socket.AckFunc) error
	On(event string, h socket.Handler) func()
}

// store is the optional write-through cache for previews.
type store interface {
	UpsertRoom(room models.Room) error
}

// typingTTL is the self-expiry of a typing slot; a lost stop-typing
// event clears itself after this long.
const typingTTL = 6 * time.Second

type Config struct {
	Self   int64
	Store  store
	Logger *slog.Logger

	// OnUpdate is invoked after every registry change; same contract as
	// the timeline hook.
	OnUpdate func()
}

type List struct {
	sess session
	cfg  Config
	log  *slog.Logger

	mu    sync.Mutex
	rooms map[models.RoomKey]*models.Room

	// Single slot per room, last event wins.
	typing geche.Geche[models.RoomKey, models.TypingState]

	unsubs    []func()
	closeOnce sync.Once
}

// NewList subscribes preview and membership handlers for both
// namespaces. The context bounds the typing cache janitor.
func NewList(ctx context.Context, sess session, cfg Config) *List {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	l := &List{
		sess:   sess,
		cfg:    cfg,
		log:    cfg.Logger,
		rooms:  make(map[models.RoomKey]*models.Room),
		typing: geche.NewMapTTLCache[models.RoomKey, models.TypingState](ctx, typingTTL, time.Second),
	}

	for _, kind := range []models.RoomKind{models.RoomDirect, models.RoomGroup} {
		kind := kind
		ns := events.ForKind(kind == models.RoomGroup)
		l.unsubs = append(l.unsubs,
			sess.On(ns.NewMessage, func(data json.RawMessage) { l.handleNewMessage(kind, data) }),
			sess.On(ns.MessageDeleted, func(data json.RawMessage) { l.handleMessageDeleted(kind, data) }),
			sess.On(ns.UserTyping, func(data json.RawMessage) { l.handleTyping(kind, data) }),
			sess.On(ns.UserStoppedTyping, func(data json.RawMessage) { l.handleTypingStopped(kind, data) }),
			sess.On(ns.AdminUpdated, l.handleAdminUpdated),
			sess.On(ns.MemberUpdated, l.handleMemberUpdated),
			sess.On(ns.RoomEdited, l.handleRoomEdited),
		)
	}

	return l
}

// Close releases the event subscriptions.
func (l *List) Close() {
	l.closeOnce.Do(func() {
		for _, off := range l.unsubs {
			off()
		}
		l.unsubs = nil
	})
}

// Seed installs rooms fetched from the server or read from the local
// cache, replacing any existing entries with the same key.
func (l *List) Seed(rooms []models.Room) {
	l.mu.Lock()
	for i := range rooms {
		room := rooms[i]
		l.rooms[room.Key()] = &room
	}
	l.mu.Unlock()
	l.changed()
}

// Rooms returns a snapshot ordered by most recent activity.
func (l *List) Rooms() []models.Room {
	l.mu.Lock()
	out := make([]models.Room, 0, len(l.rooms))
	for _, r := range l.rooms {
		out = append(out, *r)
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Room returns one conversation by key.
func (l *List) Room(key models.RoomKey) (models.Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rooms[key]
	if !ok {
		return models.Room{}, models.ErrNotFound
	}
	return *r, nil
}

// Typing returns the active typing indicator for a room, if any.
func (l *List) Typing(key models.RoomKey) (models.TypingState, bool) {
	ts, err := l.typing.Get(key)
	if err != nil {
		return models.TypingState{}, false
	}
	return ts, true
}

// JoinRoom announces presence. Emitted on navigation and re-renders;
// the server treats it as an idempotent subscription.
func (l *List) JoinRoom(key models.RoomKey, name string) error {
	ns := events.ForKind(key.Kind == models.RoomGroup)
	return l.sess.Emit(ns.JoinRoom, joinPayload{Room: key.ID, Name: name})
}

// CreateRoom opens a direct conversation with a counterpart. The server
// replies with the room record (existing or newly created).
func (l *List) CreateRoom(receiverID int64, name string, cb func(*models.Room)) error {
	return l.sess.EmitWithAck(events.Direct.CreateRoom, createPayload{
		ReceiverID: receiverID,
		Name:       name,
	}, func(data json.RawMessage) {
		var room models.Room
		if err := json.Unmarshal(data, &room); err != nil {
			l.log.Error("bad create-room ack", "error", err)
			cb(nil)
			return
		}
		room.Kind = models.RoomDirect
		l.upsert(room)
		cb(&room)
	})
}

// MakeAdmin grants group admin to a member.
func (l *List) MakeAdmin(roomID, userID int64, cb func(*models.Member)) error {
	return l.memberOp(events.Group.MakeAdmin, roomID, userID, cb)
}

// RemoveAdmin revokes group admin from a member.
func (l *List) RemoveAdmin(roomID, userID int64, cb func(*models.Member)) error {
	return l.memberOp(events.Group.RemoveAdmin, roomID, userID, cb)
}

func (l *List) memberOp(event string, roomID, userID int64, cb func(*models.Member)) error {
	return l.sess.EmitWithAck(event, memberPayload{RoomID: roomID, UserID: userID},
		func(data json.RawMessage) {
			var m models.Member
			if err := json.Unmarshal(data, &m); err != nil {
				l.log.Error("bad member ack", "event", event, "error", err)
				cb(nil)
				return
			}
			l.applyMember(m)
			cb(&m)
		})
}

// AddMember adds a user to a group room.
func (l *List) AddMember(roomID, userID int64, cb func(*models.Member, models.MemberChange)) error {
	return l.membershipOp(events.Group.AddMember, roomID, userID, cb)
}

// RemoveMember removes a user from a group room.
func (l *List) RemoveMember(roomID, userID int64, cb func(*models.Member, models.MemberChange)) error {
	return l.membershipOp(events.Group.RemoveMember, roomID, userID, cb)
}

func (l *List) membershipOp(event string, roomID, userID int64, cb func(*models.Member, models.MemberChange)) error {
	return l.sess.EmitWithAck(event, memberPayload{RoomID: roomID, UserID: userID},
		func(data json.RawMessage) {
			var ev memberUpdate
			if err := json.Unmarshal(data, &ev); err != nil {
				l.log.Error("bad membership ack", "event", event, "error", err)
				cb(nil, "")
				return
			}
			l.applyMembership(ev)
			cb(&ev.Member, ev.Status)
		})
}

// EditRoom changes the name and/or photo of a group room.
func (l *List) EditRoom(roomID int64, name, photo string, cb func(*models.Room)) error {
	return l.sess.EmitWithAck(events.Group.EditRoom, editRoomPayload{
		RoomID: roomID,
		Name:   name,
		Photo:  photo,
	}, func(data json.RawMessage) {
		var room models.Room
		if err := json.Unmarshal(data, &room); err != nil {
			l.log.Error("bad edit-room ack", "error", err)
			cb(nil)
			return
		}
		room.Kind = models.RoomGroup
		l.applyRoomEdit(room)
		cb(&room)
	})
}

func (l *List) handleNewMessage(kind models.RoomKind, data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		l.log.Error("bad preview payload", "error", err)
		return
	}
	if msg.Status == "" {
		msg.Status = models.StatusSent
	}

	l.mu.Lock()
	key := models.RoomKey{Kind: kind, ID: msg.RoomID}
	room, ok := l.rooms[key]
	if ok {
		room.LastMessage = &msg
		room.UpdatedAt = msg.CreatedAt
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	l.persist(key)
	l.changed()
}

// handleMessageDeleted redacts the preview when the deleted message is
// the one being shown.
func (l *List) handleMessageDeleted(kind models.RoomKind, data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		l.log.Error("bad delete payload", "error", err)
		return
	}

	l.mu.Lock()
	key := models.RoomKey{Kind: kind, ID: msg.RoomID}
	room, ok := l.rooms[key]
	changed := false
	if ok && room.LastMessage != nil && room.LastMessage.ID == msg.ID {
		deleted := msg
		deleted.IsDeleted = true
		room.LastMessage = &deleted
		changed = true
	}
	l.mu.Unlock()
	if changed {
		l.persist(key)
		l.changed()
	}
}

func (l *List) handleTyping(kind models.RoomKind, data json.RawMessage) {
	var ts models.TypingState
	if err := json.Unmarshal(data, &ts); err != nil {
		l.log.Error("bad typing payload", "error", err)
		return
	}
	if ts.UserID == l.cfg.Self {
		return
	}
	l.typing.Set(models.RoomKey{Kind: kind, ID: ts.RoomID}, ts)
	l.changed()
}

func (l *List) handleTypingStopped(kind models.RoomKind, data json.RawMessage) {
	var ts models.TypingState
	if err := json.Unmarshal(data, &ts); err != nil {
		l.log.Error("bad typing payload", "error", err)
		return
	}
	_ = l.typing.Del(models.RoomKey{Kind: kind, ID: ts.RoomID})
	l.changed()
}

func (l *List) handleAdminUpdated(data json.RawMessage) {
	var m models.Member
	if err := json.Unmarshal(data, &m); err != nil {
		l.log.Error("bad admin payload", "error", err)
		return
	}
	l.applyMember(m)
}

func (l *List) handleMemberUpdated(data json.RawMessage) {
	var ev memberUpdate
	if err := json.Unmarshal(data, &ev); err != nil {
		l.log.Error("bad member payload", "error", err)
		return
	}
	l.applyMembership(ev)
}

func (l *List) handleRoomEdited(data json.RawMessage) {
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		l.log.Error("bad room payload", "error", err)
		return
	}
	room.Kind = models.RoomGroup
	l.applyRoomEdit(room)
}

// applyMember replaces the member record (role change) in its room.
func (l *List) applyMember(m models.Member) {
	key := models.RoomKey{Kind: models.RoomGroup, ID: m.RoomID}

	l.mu.Lock()
	room, ok := l.rooms[key]
	if ok {
		kept := room.Members[:0:0]
		for _, existing := range room.Members {
			if existing.UserID != m.UserID {
				kept = append(kept, existing)
			}
		}
		room.Members = append(kept, m)
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	l.persist(key)
	l.changed()
}

func (l *List) applyMembership(ev memberUpdate) {
	key := models.RoomKey{Kind: models.RoomGroup, ID: ev.Member.RoomID}

	l.mu.Lock()
	room, ok := l.rooms[key]
	if ok {
		switch ev.Status {
		case models.MemberAdded:
			exists := false
			for _, existing := range room.Members {
				if existing.UserID == ev.Member.UserID {
					exists = true
					break
				}
			}
			if !exists {
				room.Members = append(room.Members, ev.Member)
			}
		case models.MemberRemoved:
			kept := room.Members[:0:0]
			for _, existing := range room.Members {
				if existing.UserID != ev.Member.UserID {
					kept = append(kept, existing)
				}
			}
			room.Members = kept
		}
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	l.persist(key)
	l.changed()
}

// applyRoomEdit merges edited metadata, keeping local fields the event
// does not carry.
func (l *List) applyRoomEdit(edited models.Room) {
	key := edited.Key()

	l.mu.Lock()
	room, ok := l.rooms[key]
	if ok {
		if edited.Name != "" {
			room.Name = edited.Name
		}
		if edited.Photo != "" {
			room.Photo = edited.Photo
		}
		if !edited.UpdatedAt.IsZero() {
			room.UpdatedAt = edited.UpdatedAt
		}
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	l.persist(key)
	l.changed()
}

func (l *List) upsert(room models.Room) {
	l.mu.Lock()
	l.rooms[room.Key()] = &room
	l.mu.Unlock()
	l.persist(room.Key())
	l.changed()
}

func (l *List) persist(key models.RoomKey) {
	if l.cfg.Store == nil {
		return
	}
	l.mu.Lock()
	room, ok := l.rooms[key]
	var snapshot models.Room
	if ok {
		snapshot = *room
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	if err := l.cfg.Store.UpsertRoom(snapshot); err != nil {
		l.log.Warn("failed to cache room", "room", key.ID, "error", err)
	}
}

func (l *List) changed() {
	if l.cfg.OnUpdate != nil {
		l.cfg.OnUpdate()
	}
}
