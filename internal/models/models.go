package models

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
)

// DeletedBody is the fixed placeholder rendered in place of the body
// of a soft-deleted message, including quoted-reply previews.
const DeletedBody = "This message was deleted"

type MessageStatus string

const (
	// StatusPending marks a client-originated message awaiting server echo.
	StatusPending MessageStatus = "PENDING"
	// StatusSent marks a server-confirmed message.
	StatusSent MessageStatus = "SENT"
	// StatusRead marks a message acknowledged by the receiving party.
	StatusRead MessageStatus = "READ"
)

// Message represents one chat line.
//
// A message the local user just sent has ID 0, a non-empty ClientRef and
// status PENDING until the server echoes the confirmed record back.
type Message struct {
	ID          int64         `json:"id"`
	ClientRef   string        `json:"clientRef,omitempty"` // correlation token echoed by the server
	RoomID      int64         `json:"roomId"`
	SenderID    int64         `json:"senderId"`
	Body        string        `json:"message"`
	ReplyToID   int64         `json:"replyToId,omitempty"`
	ReplyTo     *ReplyPreview `json:"replyTo,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   *time.Time    `json:"updatedAt,omitempty"` // set only after an edit
	IsDeleted   bool          `json:"isDeleted,omitempty"`
	Status      MessageStatus `json:"status,omitempty"`
	Reactions   []Reaction    `json:"reactions,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// Pending reports whether the message is an optimistic local entry
// that has not been confirmed by the server yet.
func (m *Message) Pending() bool {
	return m.ID == 0 && m.Status == StatusPending
}

// ReplyPreview is a denormalized snapshot of the replied-to message,
// kept on the replying message so the UI can render the quote without
// a second lookup.
type ReplyPreview struct {
	ID        int64     `json:"id"`
	SenderID  int64     `json:"senderId"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	IsDeleted bool      `json:"isDeleted,omitempty"`
}

// Reaction is one (message, user, emoji) record. Removal is by ID, so a
// specific user's reaction instance is deterministically removable even
// when other users reacted with the same emoji.
type Reaction struct {
	ID        int64  `json:"id"`
	MessageID int64  `json:"messageId"`
	Emoji     string `json:"reaction"`
	UserID    int64  `json:"userId"`
}

// ReactionGroup is the display grouping of a message's reactions.
type ReactionGroup struct {
	Emoji       string
	Count       int
	UserIDs     []int64
	ReactionIDs []int64
}

// GroupReactions folds raw reaction records into per-emoji groups,
// preserving first-seen emoji order.
func GroupReactions(reactions []Reaction) []ReactionGroup {
	var order []string
	grouped := make(map[string]*ReactionGroup)

	for _, r := range reactions {
		g, ok := grouped[r.Emoji]
		if !ok {
			g = &ReactionGroup{Emoji: r.Emoji}
			grouped[r.Emoji] = g
			order = append(order, r.Emoji)
		}
		g.Count++
		g.UserIDs = append(g.UserIDs, r.UserID)
		g.ReactionIDs = append(g.ReactionIDs, r.ID)
	}

	result := make([]ReactionGroup, 0, len(grouped))
	for _, emoji := range order {
		result = append(result, *grouped[emoji])
	}
	return result
}

type RoomKind string

const (
	RoomDirect RoomKind = "direct"
	RoomGroup  RoomKind = "group"
)

// RoomKey identifies a conversation. Direct chats and group chats live in
// separate server-side tables, so their numeric ids may collide; the kind
// disambiguates.
type RoomKey struct {
	Kind RoomKind
	ID   int64
}

// Room is one conversation: a two-party direct chat or a named N-party
// group chat with admin roles. Rooms are never hard-deleted client-side.
type Room struct {
	ID          int64     `json:"id"`
	Kind        RoomKind  `json:"kind"`
	Name        string    `json:"name"`
	Photo       string    `json:"photo,omitempty"`
	Members     []Member  `json:"members,omitempty"` // group rooms only
	LastMessage *Message  `json:"lastMessage,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

func (r *Room) Key() RoomKey {
	return RoomKey{Kind: r.Kind, ID: r.ID}
}

// Member is a group room participant.
type Member struct {
	UserID int64  `json:"userId"`
	RoomID int64  `json:"groupchatId"`
	Name   string `json:"name,omitempty"`
	Admin  bool   `json:"isAdmin"`
}

type MemberChange string

const (
	MemberAdded   MemberChange = "ADDED"
	MemberRemoved MemberChange = "REMOVED"
)

// TypingState is the single-slot typing indicator of a conversation.
// Concurrent typists are not distinguished; the last event wins.
type TypingState struct {
	RoomID int64  `json:"roomId"`
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

type Attachment struct {
	Kind     AttachmentKind `json:"type"`
	Name     string         `json:"name"`
	MimeType string         `json:"mimeType"`
	FileID   string         `json:"fileId,omitempty"`
}
