package realtime

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"medcircle/internal/model"
)

// Change operations carried on the bus.
const (
	OpItemUpdated     = "item.updated"
	OpItemDeleted     = "item.deleted"
	OpCommentsUpdated = "comments.updated"
	OpUserUpdated     = "user.updated"
)

// Event tells subscribers that a document changed. It carries no payload;
// subscribers re-read the document and push the fresh snapshot.
type Event struct {
	Op   string `msgpack:"op" json:"op"`
	Kind string `msgpack:"kind" json:"kind"`
	ID   string `msgpack:"id" json:"id"`
	At   int64  `msgpack:"at" json:"at"`
}

// ItemEvent builds an event for a post or question.
func ItemEvent(op string, ref model.ItemRef) Event {
	return Event{Op: op, Kind: string(ref.Kind), ID: ref.ID, At: time.Now().UnixMilli()}
}

// UserEvent builds an event for a profile change.
func UserEvent(userID string) Event {
	return Event{Op: OpUserUpdated, Kind: "user", ID: userID, At: time.Now().UnixMilli()}
}

// Channel returns the pub/sub channel the event belongs on.
func (e Event) Channel() string {
	return fmt.Sprintf("changes:%s:%s", e.Kind, e.ID)
}

// ItemChannel is the channel for changes to one item and its comments.
func ItemChannel(ref model.ItemRef) string {
	return fmt.Sprintf("changes:%s:%s", ref.Kind, ref.ID)
}

// UserChannel is the channel for changes to one profile.
func UserChannel(userID string) string {
	return "changes:user:" + userID
}

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return msgpack.Marshal(e)
}

// Decode parses a wire event.
func Decode(data []byte) (Event, error) {
	var e Event
	err := msgpack.Unmarshal(data, &e)
	return e, err
}
