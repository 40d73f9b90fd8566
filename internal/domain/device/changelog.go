package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChangeEntry records one applied configuration change on a device.
type ChangeEntry struct {
	ID        uuid.UUID `json:"id"`
	DeviceRef string    `json:"deviceRef"`
	ActorRef  string    `json:"actorRef"`
	Path      string    `json:"path"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	Channel   string    `json:"channel"`
	At        time.Time `json:"at"`
}

// NewChangeEntry stamps a change entry.
func NewChangeEntry(deviceRef, actorRef, path, oldValue, newValue, channel string) ChangeEntry {
	return ChangeEntry{
		ID:        uuid.New(),
		DeviceRef: deviceRef,
		ActorRef:  actorRef,
		Path:      path,
		OldValue:  oldValue,
		NewValue:  newValue,
		Channel:   channel,
		At:        time.Now().UTC(),
	}
}

// ChangeLog is the append-only configuration change log, retained up to a
// bounded window with oldest-first eviction.
type ChangeLog interface {
	Append(ctx context.Context, entry ChangeEntry) error
	List(ctx context.Context, deviceRef string, limit int) ([]ChangeEntry, error)
	// Prune evicts oldest entries beyond keep.
	Prune(ctx context.Context, keep int) (int, error)
}
