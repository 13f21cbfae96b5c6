package timeline

import "pixelchat/internal/models"

// Wire payloads of the conversation protocol. Field names follow the
// server's camelCase JSON contract.

type joinPayload struct {
	Room int64  `json:"room"`
	Name string `json:"name"`
}

type roomPayload struct {
	RoomID int64 `json:"roomId"`
}

type sendPayload struct {
	RoomID      int64               `json:"roomId"`
	Message     string              `json:"message"`
	ReplyToID   int64               `json:"replyToId,omitempty"`
	ClientRef   string              `json:"clientRef,omitempty"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

type editPayload struct {
	RoomID    int64  `json:"roomId"`
	MessageID int64  `json:"messageId"`
	Message   string `json:"message"`
}

type deletePayload struct {
	RoomID    int64 `json:"roomId"`
	MessageID int64 `json:"messageId"`
}

type reactPayload struct {
	RoomID    int64  `json:"roomId"`
	MessageID int64  `json:"messageId"`
	Reaction  string `json:"reaction"`
}

type unreactPayload struct {
	RoomID int64 `json:"roomId"`
	ID     int64 `json:"id"`
}

type readPayload struct {
	RoomID     int64   `json:"roomId"`
	MessageIDs []int64 `json:"messageIds"`
}

type loadMorePayload struct {
	RoomID int64 `json:"roomId"`
	Cursor int64 `json:"cursor"`
}

type messagesPayload struct {
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"hasMore"`
}

type readEvent struct {
	MessageIDs []int64 `json:"messageIds"`
}
