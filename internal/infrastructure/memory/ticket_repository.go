package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/evidence"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/ticket"
)

// TicketRepository is an in-memory ticket.Repository for tests and
// single-node deployments without a database.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*ticket.Ticket
}

func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[string]*ticket.Ticket)}
}

func (r *TicketRepository) Create(_ context.Context, t *ticket.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[t.ID] = cloneTicket(t)
	return nil
}

func (r *TicketRepository) GetByID(_ context.Context, id string) (*ticket.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, nil
	}
	return cloneTicket(t), nil
}

func (r *TicketRepository) Update(_ context.Context, t *ticket.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.ID]; !ok {
		return ticket.ErrNotFound
	}
	r.tickets[t.ID] = cloneTicket(t)
	return nil
}

func (r *TicketRepository) List(_ context.Context, filter ticket.Filter) ([]*ticket.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ticket.Ticket, 0)
	for _, t := range r.tickets {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.CustomerRef != nil && t.CustomerRef != *filter.CustomerRef {
			continue
		}
		if filter.TechnicianRef != nil && t.AssignedTechnicianRef != *filter.TechnicianRef {
			continue
		}
		out = append(out, cloneTicket(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *TicketRepository) CountActiveByTechnician(_ context.Context, technicianRef string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, t := range r.tickets {
		if t.AssignedTechnicianRef == technicianRef && !t.Terminal() {
			count++
		}
	}
	return count, nil
}

// cloneTicket keeps stored state isolated from caller mutation.
func cloneTicket(t *ticket.Ticket) *ticket.Ticket {
	c := *t
	if t.OTPHash != nil {
		c.OTPHash = append([]byte(nil), t.OTPHash...)
	}
	if t.CompletionHash != nil {
		c.CompletionHash = append([]byte(nil), t.CompletionHash...)
	}
	if t.Evidence != nil {
		c.Evidence = append([]evidence.Unit(nil), t.Evidence...)
	}
	return &c
}
