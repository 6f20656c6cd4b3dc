package models

import (
	"sort"
	"time"
)

/** --------------------ENTITIES-------------------- */

// Message represents one chat message within a room.
// Edited messages keep their id; deleted messages carry a DeletedAt marker.
type Message struct {
	ID         string     `json:"id"`
	RoomID     string     `json:"roomId,omitempty"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
}

// Deleted reports whether the message has been tombstoned server-side.
func (m Message) Deleted() bool {
	return m.DeletedAt != nil
}

// Room identifies a two-party conversation. The id is assigned by the broker
// on initiation; the client holds no other room record.
type Room struct {
	ID            string `json:"roomId"`
	ParticipantID string `json:"participantId"`
	CounterpartID string `json:"counterpartId"`
}

/** -------------------- DTOs -------------------- */

// RoomInitRequest is published to the room-initiation destination.
type RoomInitRequest struct {
	CounterpartID string `json:"counterpartId"`
}

// RoomInitResponse is the one-shot payload on the initiation topic.
type RoomInitResponse struct {
	RoomID string `json:"roomId"`
}

// SendMessageRequest is published to the send destination of a room.
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

// EditMessageRequest is published to the edit destination of a room.
type EditMessageRequest struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// DeleteMessageRequest is published to the delete destination of a room.
type DeleteMessageRequest struct {
	MessageID string `json:"messageId"`
}

// HistoryRequest is published to the history destination after subscribing.
type HistoryRequest struct {
	RoomID string `json:"roomId"`
}

// MergeMessages folds a batch of messages into an existing list, de-duplicating
// by id and re-sorting by timestamp ascending. The transport gives no ordering
// guarantee across history and live delivery, so every receipt goes through
// this merge. A later revision of an id (edit) replaces the earlier one; a
// tombstoned id is dropped from the result.
func MergeMessages(existing []Message, incoming ...Message) []Message {
	byID := make(map[string]Message, len(existing)+len(incoming))
	for _, m := range existing {
		byID[m.ID] = m
	}
	for _, m := range incoming {
		byID[m.ID] = m
	}

	merged := make([]Message, 0, len(byID))
	for _, m := range byID {
		if m.Deleted() {
			continue
		}
		merged = append(merged, m)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}
