// Package timeline maintains the ordered message list of one conversation,
// reconciling optimistic local writes against the server-authoritative
// event stream: optimistic insert on send, in-place replacement on the
// server echo, cursor-based backward pagination, soft deletes, reactions,
// read receipts and the single-slot typing indicator.
package timeline

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pixelchat/internal/events"
	"pixelchat/internal/identity"
	"pixelchat/internal/models"
	"pixelchat/internal/socket"
	"pixelchat/internal/typing"

	"github.com/google/uuid"
)

// session is the slice of socket.Session the timeline needs.
type session interface {
	Emit(event string, payload any) error
	EmitWithAck(event string, payload any, ack socket.AckFunc) error
	On(event string, h socket.Handler) func()
	OnStatus(f func(socket.Status)) func()
}

// loadStaleAfter bounds how long an unanswered page request keeps the
// loading guard latched before a new request may go out.
const loadStaleAfter = 30 * time.Second

type Config struct {
	Room       int64
	Events     events.Namespace
	Self       identity.Identity
	TypingIdle time.Duration
	Logger     *slog.Logger

	// OnUpdate, when set, is invoked after every state change. It runs on
	// the session read loop (inbound) or the caller (outbound); it must
	// not call back into mutating timeline methods.
	OnUpdate func()
}

type Timeline struct {
	sess session
	cfg  Config
	log  *slog.Logger

	mu           sync.Mutex
	msgs         []models.Message
	hasMore      bool
	loading      bool
	loadingSince time.Time
	typingState  *models.TypingState

	notifier *typing.Notifier
	unsubs   []func()

	closeOnce sync.Once
}

// New builds the timeline, subscribes its event handlers and announces
// presence in the room. The subscriptions are released by Close.
func New(sess session, cfg Config) *Timeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	t := &Timeline{
		sess: sess,
		cfg:  cfg,
		log:  cfg.Logger.With("room", cfg.Room),
	}

	ns := cfg.Events
	t.notifier = typing.NewNotifier(cfg.TypingIdle,
		func() { _ = sess.Emit(ns.Typing, roomPayload{RoomID: cfg.Room}) },
		func() { _ = sess.Emit(ns.StopTyping, roomPayload{RoomID: cfg.Room}) },
	)

	t.unsubs = append(t.unsubs,
		sess.On(ns.Messages, t.handleMessages),
		sess.On(ns.NewMessage, t.handleNewMessage),
		sess.On(ns.MessagesRead, t.handleMessagesRead),
		sess.On(ns.MessageEdited, t.handleOverwrite),
		sess.On(ns.MessageDeleted, t.handleOverwrite),
		sess.On(ns.MessageReacted, t.handleReacted),
		sess.On(ns.MessageUnreacted, t.handleUnreacted),
		sess.On(ns.UserTyping, t.handleTyping),
		sess.On(ns.UserStoppedTyping, t.handleTypingStopped),
		// Room joins are idempotent subscriptions; re-announce on every
		// reconnect so the server keeps routing events here.
		sess.OnStatus(func(st socket.Status) {
			if st.Connected {
				t.join()
			}
		}),
	)

	t.join()

	return t
}

func (t *Timeline) join() {
	err := t.sess.Emit(t.cfg.Events.JoinRoom, joinPayload{
		Room: t.cfg.Room,
		Name: t.cfg.Self.DisplayName(),
	})
	if err != nil && err != socket.ErrNotConnected {
		t.log.Warn("join failed", "error", err)
	}
}

// Close releases every subscription and always emits stop-typing so the
// remote side cannot keep showing a stale indicator.
func (t *Timeline) Close() {
	t.closeOnce.Do(func() {
		for _, off := range t.unsubs {
			off()
		}
		t.unsubs = nil
		t.notifier.Close()
	})
}

// Messages returns a snapshot of the timeline in arrival order.
func (t *Timeline) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// HasMore reports whether older pages remain on the server.
func (t *Timeline) HasMore() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasMore
}

// Typing returns the current typing indicator, or nil.
func (t *Timeline) Typing() *models.TypingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.typingState == nil {
		return nil
	}
	ts := *t.typingState
	return &ts
}

// SendMessage appends an optimistic PENDING entry and emits the send.
// The entry carries a correlation token the server echoes back in its
// confirmation; the emit error is returned so callers may surface it,
// but the optimistic entry stays either way.
func (t *Timeline) SendMessage(body string, replyTo *models.Message, attachments ...models.Attachment) error {
	body = strings.TrimSpace(body)

	msg := models.Message{
		ClientRef:   uuid.NewString(),
		RoomID:      t.cfg.Room,
		SenderID:    t.cfg.Self.UserID,
		Body:        body,
		CreatedAt:   time.Now(),
		Status:      models.StatusPending,
		Reactions:   []models.Reaction{},
		Attachments: attachments,
	}
	if replyTo != nil {
		msg.ReplyToID = replyTo.ID
		msg.ReplyTo = &models.ReplyPreview{
			ID:        replyTo.ID,
			SenderID:  replyTo.SenderID,
			Body:      replyTo.Body,
			CreatedAt: replyTo.CreatedAt,
			IsDeleted: replyTo.IsDeleted,
		}
	}

	t.mu.Lock()
	t.msgs = append(t.msgs, msg)
	t.mu.Unlock()
	t.changed()

	return t.sess.Emit(t.cfg.Events.SendMessage, sendPayload{
		RoomID:      t.cfg.Room,
		Message:     body,
		ReplyToID:   msg.ReplyToID,
		ClientRef:   msg.ClientRef,
		Attachments: attachments,
	})
}

// Edit optimistically flips the target back to PENDING and emits the
// edit; the server's confirmation event overwrites the record by id.
func (t *Timeline) Edit(messageID int64, body string) error {
	t.mu.Lock()
	for i := range t.msgs {
		if t.msgs[i].ID == messageID {
			t.msgs[i].Status = models.StatusPending
			break
		}
	}
	t.mu.Unlock()
	t.changed()

	return t.sess.Emit(t.cfg.Events.EditMessage, editPayload{
		RoomID:    t.cfg.Room,
		MessageID: messageID,
		Message:   strings.TrimSpace(body),
	})
}

// Delete optimistically sets the soft-deletion flag and emits the
// delete. The record keeps its body; rendering redacts it.
func (t *Timeline) Delete(messageID int64) error {
	t.mu.Lock()
	for i := range t.msgs {
		if t.msgs[i].ID == messageID {
			t.msgs[i].IsDeleted = true
			break
		}
	}
	t.mu.Unlock()
	t.changed()

	return t.sess.Emit(t.cfg.Events.DeleteMessage, deletePayload{
		RoomID:    t.cfg.Room,
		MessageID: messageID,
	})
}

// AddReaction is not optimistic: the server's reaction broadcast is the
// only thing that mutates local state. Uniqueness policy is the
// server's.
func (t *Timeline) AddReaction(messageID int64, emoji string) error {
	return t.sess.Emit(t.cfg.Events.ReactToMessage, reactPayload{
		RoomID:    t.cfg.Room,
		MessageID: messageID,
		Reaction:  emoji,
	})
}

// RemoveReaction removes by reaction id, not emoji, so one user's
// instance is removable without touching same-emoji reactions from
// other users.
func (t *Timeline) RemoveReaction(reactionID int64) error {
	return t.sess.Emit(t.cfg.Events.UnreactToMessage, unreactPayload{
		RoomID: t.cfg.Room,
		ID:     reactionID,
	})
}

// InputChanged feeds composer text changes into the typing debouncer.
func (t *Timeline) InputChanged(text string) {
	t.notifier.InputChanged(text)
}

// LoadMore requests the next older page using the oldest held id as
// cursor. No-op while a request is in flight, when the server reported
// no more pages, or when the timeline is empty.
func (t *Timeline) LoadMore() error {
	t.mu.Lock()
	if t.loading && time.Since(t.loadingSince) < loadStaleAfter {
		t.mu.Unlock()
		return nil
	}
	if !t.hasMore || len(t.msgs) == 0 {
		t.mu.Unlock()
		return nil
	}
	cursor := t.msgs[0].ID
	t.loading = true
	t.loadingSince = time.Now()
	t.mu.Unlock()

	err := t.sess.EmitWithAck(t.cfg.Events.LoadMoreMessages, loadMorePayload{
		RoomID: t.cfg.Room,
		Cursor: cursor,
	}, t.handleMoreMessages)
	if err != nil {
		t.mu.Lock()
		t.loading = false
		t.mu.Unlock()
		return err
	}
	return nil
}

// Loading reports whether a backward-page request is in flight.
func (t *Timeline) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// handleMessages replaces the timeline with the initial history page and
// batches one mark-as-read for every unread inbound message. Local
// PENDING entries survive the replace: a history page arrives on every
// rejoin, and it must not wipe sends queued while disconnected.
func (t *Timeline) handleMessages(data json.RawMessage) {
	var page messagesPayload
	if err := json.Unmarshal(data, &page); err != nil {
		t.log.Error("bad messages payload", "error", err)
		return
	}

	var unread []int64
	confirmed := make(map[string]bool, len(page.Messages))
	for i := range page.Messages {
		m := &page.Messages[i]
		if m.SenderID != t.cfg.Self.UserID && m.Status != models.StatusRead {
			unread = append(unread, m.ID)
		}
		if m.ClientRef != "" {
			confirmed[m.ClientRef] = true
		}
	}

	t.mu.Lock()
	var pending []models.Message
	for _, m := range t.msgs {
		if m.Pending() && !confirmed[m.ClientRef] {
			pending = append(pending, m)
		}
	}
	t.msgs = append(page.Messages, pending...)
	t.hasMore = page.HasMore
	t.mu.Unlock()
	t.changed()

	if len(unread) > 0 {
		t.markRead(unread)
	}
}

// handleMoreMessages is the pagination ack: prepend preserving relative
// order, update the has-more flag, release the loading guard.
func (t *Timeline) handleMoreMessages(data json.RawMessage) {
	var page messagesPayload
	if err := json.Unmarshal(data, &page); err != nil {
		t.log.Error("bad pagination payload", "error", err)
		t.mu.Lock()
		t.loading = false
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	t.msgs = append(page.Messages, t.msgs...)
	t.hasMore = page.HasMore
	t.loading = false
	t.mu.Unlock()
	t.changed()
}

// handleNewMessage reconciles a confirmed message against the local
// timeline: replace the matching optimistic entry in place, suppress
// duplicates by id, otherwise append. Inbound messages from other
// parties are acknowledged immediately.
func (t *Timeline) handleNewMessage(data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.log.Error("bad message payload", "error", err)
		return
	}
	if msg.RoomID != t.cfg.Room {
		return
	}
	if msg.Status == "" || msg.Status == models.StatusPending {
		msg.Status = models.StatusSent
	}
	if msg.Reactions == nil {
		msg.Reactions = []models.Reaction{}
	}

	t.mu.Lock()
	if i := t.findOptimistic(&msg); i >= 0 {
		t.msgs[i] = msg
		t.mu.Unlock()
		t.changed()
		return
	}

	for i := range t.msgs {
		if t.msgs[i].ID == msg.ID {
			// Redundant broadcast.
			t.mu.Unlock()
			return
		}
	}

	t.msgs = append(t.msgs, msg)
	foreign := msg.SenderID != t.cfg.Self.UserID
	t.mu.Unlock()
	t.changed()

	if foreign {
		t.markRead([]int64{msg.ID})
	}
}

// findOptimistic locates the PENDING entry the confirmed message
// replaces. Exact match by echoed correlation token; servers that do not
// echo it fall back to the (sender, body, pending) heuristic.
// Caller holds t.mu.
func (t *Timeline) findOptimistic(msg *models.Message) int {
	if msg.ClientRef != "" {
		for i := range t.msgs {
			if t.msgs[i].Pending() && t.msgs[i].ClientRef == msg.ClientRef {
				return i
			}
		}
		return -1
	}
	for i := range t.msgs {
		m := &t.msgs[i]
		if m.Pending() && m.SenderID == msg.SenderID && m.Body == msg.Body {
			return i
		}
	}
	return -1
}

func (t *Timeline) handleMessagesRead(data json.RawMessage) {
	var ev readEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.log.Error("bad messages-read payload", "error", err)
		return
	}

	read := make(map[int64]bool, len(ev.MessageIDs))
	for _, id := range ev.MessageIDs {
		read[id] = true
	}

	t.mu.Lock()
	for i := range t.msgs {
		if read[t.msgs[i].ID] {
			t.msgs[i].Status = models.StatusRead
		}
	}
	t.mu.Unlock()
	t.changed()
}

// handleOverwrite serves both edit and delete confirmations: the server
// sends the full record and it replaces the local one by id, preserving
// list position.
func (t *Timeline) handleOverwrite(data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.log.Error("bad overwrite payload", "error", err)
		return
	}
	if msg.RoomID != t.cfg.Room {
		return
	}

	t.mu.Lock()
	for i := range t.msgs {
		if t.msgs[i].ID == msg.ID {
			if msg.Reactions == nil {
				msg.Reactions = t.msgs[i].Reactions
			}
			t.msgs[i] = msg
			break
		}
	}
	t.mu.Unlock()
	t.changed()
}

// handleReacted appends the reaction to its message, replacing any
// existing record with the same id. Dedup is by reaction id only; the
// server owns the (user, emoji) uniqueness policy.
func (t *Timeline) handleReacted(data json.RawMessage) {
	var r models.Reaction
	if err := json.Unmarshal(data, &r); err != nil {
		t.log.Error("bad reaction payload", "error", err)
		return
	}

	t.mu.Lock()
	for i := range t.msgs {
		if t.msgs[i].ID != r.MessageID {
			continue
		}
		kept := t.msgs[i].Reactions[:0:0]
		for _, existing := range t.msgs[i].Reactions {
			if existing.ID != r.ID {
				kept = append(kept, existing)
			}
		}
		t.msgs[i].Reactions = append(kept, r)
		break
	}
	t.mu.Unlock()
	t.changed()
}

func (t *Timeline) handleUnreacted(data json.RawMessage) {
	var r models.Reaction
	if err := json.Unmarshal(data, &r); err != nil {
		t.log.Error("bad unreaction payload", "error", err)
		return
	}

	t.mu.Lock()
	for i := range t.msgs {
		if t.msgs[i].ID != r.MessageID {
			continue
		}
		kept := t.msgs[i].Reactions[:0:0]
		for _, existing := range t.msgs[i].Reactions {
			if existing.ID != r.ID {
				kept = append(kept, existing)
			}
		}
		t.msgs[i].Reactions = kept
		break
	}
	t.mu.Unlock()
	t.changed()
}

func (t *Timeline) handleTyping(data json.RawMessage) {
	var ts models.TypingState
	if err := json.Unmarshal(data, &ts); err != nil {
		t.log.Error("bad typing payload", "error", err)
		return
	}
	if ts.RoomID != t.cfg.Room || ts.UserID == t.cfg.Self.UserID {
		return
	}

	t.mu.Lock()
	t.typingState = &ts
	t.mu.Unlock()
	t.changed()
}

func (t *Timeline) handleTypingStopped(data json.RawMessage) {
	var ts models.TypingState
	if err := json.Unmarshal(data, &ts); err != nil {
		t.log.Error("bad typing payload", "error", err)
		return
	}
	if ts.RoomID != t.cfg.Room {
		return
	}

	t.mu.Lock()
	t.typingState = nil
	t.mu.Unlock()
	t.changed()
}

func (t *Timeline) markRead(ids []int64) {
	err := t.sess.Emit(t.cfg.Events.MarkAsRead, readPayload{
		RoomID:     t.cfg.Room,
		MessageIDs: ids,
	})
	if err != nil && err != socket.ErrNotConnected {
		t.log.Warn("mark-as-read failed", "error", err)
	}
}

func (t *Timeline) changed() {
	if t.cfg.OnUpdate != nil {
		t.cfg.OnUpdate()
	}
}
