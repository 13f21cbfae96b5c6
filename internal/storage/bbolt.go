// Package storage caches conversations and their most recent messages in
// a local bbolt file, so the client can render the last known state
// before the socket delivers the authoritative history. It is a cache,
// not a resend queue: pending messages are never persisted.
package storage

import (
	"fmt"
	"time"

	"pixelchat/internal/models"

	"go.etcd.io/bbolt"
)

var (
	bucketRooms    = []byte("rooms")
	bucketMessages = []byte("messages")
)

type Store struct {
	db *bbolt.DB
}

func NewStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRooms); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMessages); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertRoom saves a room snapshot, preview included.
func (s *Store) UpsertRoom(room models.Room) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRooms)
		dbRoom := toDBRoom(room)
		data, err := dbRoom.MarshalBinary()
		if err != nil {
			return err
		}
		return b.Put(dbRoom.Key(), data)
	})
}

// ListRooms returns every cached room.
func (s *Store) ListRooms() ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRooms)
		return b.ForEach(func(k, v []byte) error {
			var dbRoom DBRoom
			if err := dbRoom.UnmarshalBinary(v); err != nil {
				return err
			}
			rooms = append(rooms, fromDBRoom(dbRoom))
			return nil
		})
	})
	return rooms, err
}

// SaveMessages replaces the cached page for one room with the given
// messages. Optimistic entries (no server id yet) are skipped.
func (s *Store) SaveMessages(key models.RoomKey, msgs []models.Message) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		parent := tx.Bucket(bucketMessages)
		roomKey := roomBucketKey(key)

		if parent.Bucket(roomKey) != nil {
			if err := parent.DeleteBucket(roomKey); err != nil {
				return fmt.Errorf("failed to reset message bucket: %w", err)
			}
		}
		b, err := parent.CreateBucket(roomKey)
		if err != nil {
			return fmt.Errorf("failed to create message bucket: %w", err)
		}

		for _, msg := range msgs {
			if msg.ID == 0 {
				continue
			}
			dbMsg := toDBMessage(msg)
			data, err := dbMsg.MarshalBinary()
			if err != nil {
				return fmt.Errorf("failed to marshal message: %w", err)
			}
			if err := b.Put(dbMsg.Key(), data); err != nil {
				return fmt.Errorf("failed to put message: %w", err)
			}
		}
		return nil
	})
}

// ListMessages returns the cached page for one room in id order.
func (s *Store) ListMessages(key models.RoomKey) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMessages).Bucket(roomBucketKey(key))
		if b == nil {
			return nil // nothing cached for this room
		}
		return b.ForEach(func(k, v []byte) error {
			var dbMsg DBMessage
			if err := dbMsg.UnmarshalBinary(v); err != nil {
				return err
			}
			msgs = append(msgs, fromDBMessage(dbMsg))
			return nil
		})
	})
	return msgs, err
}

func roomBucketKey(key models.RoomKey) []byte {
	return []byte(fmt.Sprintf("%s:%d", key.Kind, key.ID))
}
