package memory

import (
	"context"
	"sync"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/actor"
)

// Directory is an in-memory actor.Directory.
type Directory struct {
	mu     sync.RWMutex
	actors map[string]*actor.Actor
}

func NewDirectory(actors ...*actor.Actor) *Directory {
	d := &Directory{actors: make(map[string]*actor.Actor)}
	for _, a := range actors {
		d.actors[a.Ref] = a
	}
	return d
}

// Register adds or replaces an actor.
func (d *Directory) Register(a *actor.Actor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actors[a.Ref] = a
}

func (d *Directory) Lookup(_ context.Context, ref string) (*actor.Actor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.actors[ref]
	if !ok {
		return nil, actor.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (d *Directory) ListByRole(_ context.Context, role actor.Role) ([]*actor.Actor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*actor.Actor, 0)
	for _, a := range d.actors {
		if a.Role == role {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}
