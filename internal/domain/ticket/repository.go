package ticket

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import "context"

// Filter narrows ticket listings.
type Filter struct {
	Status        *Status
	CustomerRef   *string
	TechnicianRef *string
	Limit         int
}

// Repository defines persistence for tickets. GetByID returns (nil, nil)
// when no ticket exists; terminal tickets stay queryable (archived, never
// deleted).
type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id string) (*Ticket, error)
	Update(ctx context.Context, t *Ticket) error
	List(ctx context.Context, filter Filter) ([]*Ticket, error)
	// CountActiveByTechnician counts non-terminal tickets held by a
	// technician, used by the assignment cap policy.
	CountActiveByTechnician(ctx context.Context, technicianRef string) (int, error)
}
