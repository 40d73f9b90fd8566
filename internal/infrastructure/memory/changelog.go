package memory

import (
	"context"
	"sync"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/device"
)

// ChangeLog is an in-memory device.ChangeLog with bounded retention and
// oldest-first eviction.
type ChangeLog struct {
	mu      sync.Mutex
	keep    int
	entries []device.ChangeEntry
}

func NewChangeLog(keep int) *ChangeLog {
	if keep <= 0 {
		keep = 1000
	}
	return &ChangeLog{keep: keep}
}

func (l *ChangeLog) Append(_ context.Context, entry device.ChangeEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.keep; over > 0 {
		l.entries = append([]device.ChangeEntry(nil), l.entries[over:]...)
	}
	return nil
}

func (l *ChangeLog) List(_ context.Context, deviceRef string, limit int) ([]device.ChangeEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]device.ChangeEntry, 0)
	// Newest first.
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].DeviceRef != deviceRef {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (l *ChangeLog) Prune(_ context.Context, keep int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if keep <= 0 || len(l.entries) <= keep {
		return 0, nil
	}
	removed := len(l.entries) - keep
	l.entries = append([]device.ChangeEntry(nil), l.entries[removed:]...)
	return removed, nil
}
