package evidence

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies an evidence unit.
type Kind string

const (
	KindPhoto Kind = "PHOTO"
)

// Unit is a single piece of supporting documentation attached to a ticket.
type Unit struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	StorageRef  string    `json:"storageRef"`
	SubmittedBy string    `json:"submittedBy"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewPhoto creates a photo evidence unit.
func NewPhoto(storageRef, submittedBy string) Unit {
	return Unit{
		ID:          uuid.New(),
		Kind:        KindPhoto,
		StorageRef:  storageRef,
		SubmittedBy: submittedBy,
		SubmittedAt: time.Now().UTC(),
	}
}
