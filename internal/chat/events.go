package chat

import "consult-client/internal/models"

// EventKind discriminates the inbound chat event union.
type EventKind string

const (
	EventNewMessage EventKind = "new_message"
	EventEdited     EventKind = "edited"
	EventDeleted    EventKind = "deleted"
)

// Event is one inbound room event. Message always carries the full message
// payload; for EventDeleted only the id and DeletedAt marker are meaningful.
// History batches arrive as a run of EventNewMessage events interleaved with
// live traffic, so consumers must merge by id and re-sort by timestamp
// (models.MergeMessages does both).
type Event struct {
	Kind    EventKind
	Message models.Message
}

// EventHandler receives room events. Handlers run on the connection's read
// goroutine and must not block.
type EventHandler func(Event)

// classifyUpdate maps a payload from the updates topic to its event kind.
// The broker multiplexes edits and deletes over one topic; a tombstone
// marker distinguishes them.
func classifyUpdate(m models.Message) Event {
	if m.Deleted() {
		return Event{Kind: EventDeleted, Message: m}
	}
	return Event{Kind: EventEdited, Message: m}
}
