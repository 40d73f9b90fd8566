package actor

import (
	"context"
	"errors"
)

// Role classifies the human on the other end of the chat channel.
type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleTechnician Role = "TECHNICIAN"
	RoleAdmin      Role = "ADMIN"
)

var (
	ErrNotFound      = errors.New("actor not found")
	ErrNotAuthorized = errors.New("actor not authorized for target")
)

// Actor is a registered chat participant.
type Actor struct {
	Ref       string `json:"ref"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	DeviceRef string `json:"deviceRef,omitempty"`
	// SSIDIndices lists the wireless configuration indices this actor may
	// change on their device. Empty for non-customers.
	SSIDIndices []int `json:"ssidIndices,omitempty"`
}

// AllowsSSID reports whether idx is inside the actor's allowed set.
func (a *Actor) AllowsSSID(idx int) bool {
	for _, i := range a.SSIDIndices {
		if i == idx {
			return true
		}
	}
	return false
}

// Directory resolves chat identifiers to registered actors.
type Directory interface {
	Lookup(ctx context.Context, ref string) (*Actor, error)
	ListByRole(ctx context.Context, role Role) ([]*Actor, error)
}
