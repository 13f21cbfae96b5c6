package storage

import (
	"encoding/binary"
	"fmt"
	"time"

	"pixelchat/internal/models"

	"github.com/vmihailenco/msgpack/v5"
)

// On-disk representations, msgpack-encoded. Kept separate from the
// domain types so the cache schema can evolve independently.

type DBRoom struct {
	ID          int64      `msgpack:"id"`
	Kind        string     `msgpack:"kind"`
	Name        string     `msgpack:"name"`
	Photo       string     `msgpack:"photo"`
	UpdatedAt   int64      `msgpack:"updatedAt"`
	Members     []DBMember `msgpack:"members"`
	LastMessage *DBMessage `msgpack:"lastMessage"`
}

func (r *DBRoom) Key() []byte {
	return []byte(fmt.Sprintf("%s:%d", r.Kind, r.ID))
}

func (r *DBRoom) MarshalBinary() ([]byte, error) {
	type alias DBRoom
	return msgpack.Marshal((*alias)(r))
}

func (r *DBRoom) UnmarshalBinary(data []byte) error {
	type alias DBRoom
	return msgpack.Unmarshal(data, (*alias)(r))
}

type DBMember struct {
	UserID int64  `msgpack:"userId"`
	RoomID int64  `msgpack:"roomId"`
	Name   string `msgpack:"name"`
	Admin  bool   `msgpack:"isAdmin"`
}

type DBMessage struct {
	ID        int64        `msgpack:"id"`
	RoomID    int64        `msgpack:"roomId"`
	SenderID  int64        `msgpack:"senderId"`
	Body      string       `msgpack:"message"`
	ReplyToID int64        `msgpack:"replyToId"`
	ReplyTo   *DBReply     `msgpack:"replyTo"`
	CreatedAt int64        `msgpack:"createdAt"`
	UpdatedAt int64        `msgpack:"updatedAt"`
	IsDeleted bool         `msgpack:"isDeleted"`
	Status    string       `msgpack:"status"`
	Reactions []DBReaction `msgpack:"reactions"`
}

func (m *DBMessage) Key() []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(m.ID))
	return key
}

func (m *DBMessage) MarshalBinary() ([]byte, error) {
	type alias DBMessage
	return msgpack.Marshal((*alias)(m))
}

func (m *DBMessage) UnmarshalBinary(data []byte) error {
	type alias DBMessage
	return msgpack.Unmarshal(data, (*alias)(m))
}

type DBReply struct {
	ID        int64  `msgpack:"id"`
	SenderID  int64  `msgpack:"senderId"`
	Body      string `msgpack:"message"`
	CreatedAt int64  `msgpack:"createdAt"`
	IsDeleted bool   `msgpack:"isDeleted"`
}

type DBReaction struct {
	ID        int64  `msgpack:"id"`
	MessageID int64  `msgpack:"messageId"`
	Emoji     string `msgpack:"reaction"`
	UserID    int64  `msgpack:"userId"`
}

func toDBRoom(room models.Room) DBRoom {
	dbRoom := DBRoom{
		ID:        room.ID,
		Kind:      string(room.Kind),
		Name:      room.Name,
		Photo:     room.Photo,
		UpdatedAt: room.UpdatedAt.Unix(),
	}
	for _, m := range room.Members {
		dbRoom.Members = append(dbRoom.Members, DBMember{
			UserID: m.UserID,
			RoomID: m.RoomID,
			Name:   m.Name,
			Admin:  m.Admin,
		})
	}
	if room.LastMessage != nil {
		dbMsg := toDBMessage(*room.LastMessage)
		dbRoom.LastMessage = &dbMsg
	}
	return dbRoom
}

func fromDBRoom(dbRoom DBRoom) models.Room {
	room := models.Room{
		ID:        dbRoom.ID,
		Kind:      models.RoomKind(dbRoom.Kind),
		Name:      dbRoom.Name,
		Photo:     dbRoom.Photo,
		UpdatedAt: time.Unix(dbRoom.UpdatedAt, 0),
	}
	for _, m := range dbRoom.Members {
		room.Members = append(room.Members, models.Member{
			UserID: m.UserID,
			RoomID: m.RoomID,
			Name:   m.Name,
			Admin:  m.Admin,
		})
	}
	if dbRoom.LastMessage != nil {
		msg := fromDBMessage(*dbRoom.LastMessage)
		room.LastMessage = &msg
	}
	return room
}

func toDBMessage(msg models.Message) DBMessage {
	dbMsg := DBMessage{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Body:      msg.Body,
		ReplyToID: msg.ReplyToID,
		CreatedAt: msg.CreatedAt.Unix(),
		IsDeleted: msg.IsDeleted,
		Status:    string(msg.Status),
	}
	if msg.UpdatedAt != nil {
		dbMsg.UpdatedAt = msg.UpdatedAt.Unix()
	}
	if msg.ReplyTo != nil {
		dbMsg.ReplyTo = &DBReply{
			ID:        msg.ReplyTo.ID,
			SenderID:  msg.ReplyTo.SenderID,
			Body:      msg.ReplyTo.Body,
			CreatedAt: msg.ReplyTo.CreatedAt.Unix(),
			IsDeleted: msg.ReplyTo.IsDeleted,
		}
	}
	for _, r := range msg.Reactions {
		dbMsg.Reactions = append(dbMsg.Reactions, DBReaction{
			ID:        r.ID,
			MessageID: r.MessageID,
			Emoji:     r.Emoji,
			UserID:    r.UserID,
		})
	}
	return dbMsg
}

func fromDBMessage(dbMsg DBMessage) models.Message {
	msg := models.Message{
		ID:        dbMsg.ID,
		RoomID:    dbMsg.RoomID,
		SenderID:  dbMsg.SenderID,
		Body:      dbMsg.Body,
		ReplyToID: dbMsg.ReplyToID,
		CreatedAt: time.Unix(dbMsg.CreatedAt, 0),
		IsDeleted: dbMsg.IsDeleted,
		Status:    models.MessageStatus(dbMsg.Status),
	}
	if dbMsg.UpdatedAt != 0 {
		updatedAt := time.Unix(dbMsg.UpdatedAt, 0)
		msg.UpdatedAt = &updatedAt
	}
	if dbMsg.ReplyTo != nil {
		msg.ReplyTo = &models.ReplyPreview{
			ID:        dbMsg.ReplyTo.ID,
			SenderID:  dbMsg.ReplyTo.SenderID,
			Body:      dbMsg.ReplyTo.Body,
			CreatedAt: time.Unix(dbMsg.ReplyTo.CreatedAt, 0),
			IsDeleted: dbMsg.ReplyTo.IsDeleted,
		}
	}
	for _, r := range dbMsg.Reactions {
		msg.Reactions = append(msg.Reactions, models.Reaction{
			ID:        r.ID,
			MessageID: r.MessageID,
			Emoji:     r.Emoji,
			UserID:    r.UserID,
		})
	}
	return msg
}
