package ticket

import (
	"time"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/evidence"
)

// Status represents the incident-ticket lifecycle state.
type Status string

const (
	StatusNew                  Status = "new"
	StatusAssigned             Status = "assigned"
	StatusVerified             Status = "verified"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusResolved             Status = "resolved"
	StatusCancelled            Status = "cancelled"
)

// Priority reflects triage urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

const (
	OTPDigits            = 6
	CompletionCodeDigits = 4
)

// Ticket is the record of a reported connectivity incident. Verification
// codes are stored hashed; the plain code exists only in the return value of
// the operation that issued it.
type Ticket struct {
	ID                    string          `json:"id"`
	CustomerRef           string          `json:"customerRef"`
	DeviceRef             string          `json:"deviceRef"`
	Status                Status          `json:"status"`
	Priority              Priority        `json:"priority"`
	Symptom               string          `json:"symptom,omitempty"`
	AssignedTechnicianRef string          `json:"assignedTechnicianRef,omitempty"`
	OTPHash               []byte          `json:"-"`
	OTPIssuedAt           *time.Time      `json:"otpIssuedAt,omitempty"`
	CompletionHash        []byte          `json:"-"`
	CompletionIssuedAt    *time.Time      `json:"completionIssuedAt,omitempty"`
	Evidence              []evidence.Unit `json:"evidence,omitempty"`
	ResolutionNotes       string          `json:"resolutionNotes,omitempty"`
	CancelledBy           string          `json:"cancelledBy,omitempty"`
	CancelReason          string          `json:"cancelReason,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
	AssignedAt            *time.Time      `json:"assignedAt,omitempty"`
	ResolvedAt            *time.Time      `json:"resolvedAt,omitempty"`
	ArchivedAt            *time.Time      `json:"archivedAt,omitempty"`
	ResolutionDuration    time.Duration   `json:"resolutionDuration,omitempty"`
}

// New creates a ticket in status new.
func New(customerRef, deviceRef, symptom string, priority Priority) *Ticket {
	now := time.Now().UTC()
	return &Ticket{
		ID:          NewTicketID(),
		CustomerRef: customerRef,
		DeviceRef:   deviceRef,
		Symptom:     symptom,
		Status:      StatusNew,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CanTransitionTo validates a lifecycle transition.
func (t *Ticket) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusNew:                  {StatusAssigned, StatusCancelled},
		StatusAssigned:             {StatusVerified, StatusCancelled},
		StatusVerified:             {StatusAwaitingConfirmation},
		StatusAwaitingConfirmation: {StatusResolved},
		StatusResolved:             {},
		StatusCancelled:            {},
	}
	for _, s := range transitions[t.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// Terminal reports whether the ticket reached an archived end state.
func (t *Ticket) Terminal() bool {
	return t.Status == StatusResolved || t.Status == StatusCancelled
}

// Assign hands the ticket to a technician and issues a fresh OTP, returned
// in plain form exactly once. Legal from new, or from assigned when the
// previous OTP lapsed without verification (reassignment path; a ticket
// never re-enters new once left).
func (t *Ticket) Assign(technicianRef string, otpTTL time.Duration, now time.Time) (string, error) {
	switch t.Status {
	case StatusNew:
	case StatusAssigned:
		if t.OTPHash != nil && t.OTPIssuedAt != nil && now.Sub(*t.OTPIssuedAt) <= otpTTL {
			return "", ErrAlreadyAssigned
		}
	default:
		if t.Terminal() {
			return "", ErrNotFound
		}
		return "", ErrInvalidTransition
	}

	otp := NewNumericCode(OTPDigits)
	t.Status = StatusAssigned
	t.AssignedTechnicianRef = technicianRef
	t.OTPHash = hashCode(otp)
	issued := now
	t.OTPIssuedAt = &issued
	assigned := now
	t.AssignedAt = &assigned
	t.touch(now)
	return otp, nil
}

// VerifyOTP consumes the OTP and moves the ticket to verified. An expired
// OTP is cleared so the ticket requires reassignment; a mismatch does not
// consume the code.
func (t *Ticket) VerifyOTP(candidate string, otpTTL time.Duration, now time.Time) error {
	if t.Status != StatusAssigned || t.OTPHash == nil || t.OTPIssuedAt == nil {
		return ErrInvalidTransition
	}
	if now.Sub(*t.OTPIssuedAt) > otpTTL {
		t.OTPHash = nil
		t.OTPIssuedAt = nil
		t.touch(now)
		return ErrExpired
	}
	if !codeMatches(t.OTPHash, candidate) {
		return ErrMismatch
	}
	t.Status = StatusVerified
	t.OTPHash = nil
	t.OTPIssuedAt = nil
	t.touch(now)
	return nil
}

// AttachEvidence appends evidence units in submission order. Legal only
// after on-site verification.
func (t *Ticket) AttachEvidence(units []evidence.Unit, now time.Time) error {
	if t.Status != StatusVerified {
		return ErrInvalidTransition
	}
	t.Evidence = append(t.Evidence, units...)
	t.touch(now)
	return nil
}

// MarkResolved records resolution notes, issues a completion code and moves
// the ticket to awaiting_confirmation. Requires at least minEvidence
// attached units.
func (t *Ticket) MarkResolved(notes string, minEvidence int, codeTTL time.Duration, now time.Time) (string, error) {
	if !t.CanTransitionTo(StatusAwaitingConfirmation) {
		return "", ErrInvalidTransition
	}
	if len(t.Evidence) < minEvidence {
		return "", ErrInsufficientEvidence
	}
	code := NewNumericCode(CompletionCodeDigits)
	t.Status = StatusAwaitingConfirmation
	t.ResolutionNotes = notes
	t.CompletionHash = hashCode(code)
	issued := now
	t.CompletionIssuedAt = &issued
	t.touch(now)
	return code, nil
}

// ConfirmCompletion consumes the completion code, resolves the ticket and
// stamps the resolution duration measured from assignment.
func (t *Ticket) ConfirmCompletion(candidate string, codeTTL time.Duration, now time.Time) error {
	if t.Status != StatusAwaitingConfirmation || t.CompletionHash == nil || t.CompletionIssuedAt == nil {
		return ErrInvalidTransition
	}
	if now.Sub(*t.CompletionIssuedAt) > codeTTL {
		return ErrExpired
	}
	if !codeMatches(t.CompletionHash, candidate) {
		return ErrMismatch
	}
	t.Status = StatusResolved
	t.CompletionHash = nil
	t.CompletionIssuedAt = nil
	resolved := now
	t.ResolvedAt = &resolved
	if t.AssignedAt != nil {
		t.ResolutionDuration = now.Sub(*t.AssignedAt)
	}
	t.archive(now)
	return nil
}

// Cancel closes the ticket before field work was verified. Once work has
// been verified on-site the ticket must go through resolution instead, so
// the audit trail of completed work is never lost.
func (t *Ticket) Cancel(actorRef, reason string, now time.Time) error {
	if !t.CanTransitionTo(StatusCancelled) {
		return ErrInvalidTransition
	}
	t.Status = StatusCancelled
	t.CancelledBy = actorRef
	t.CancelReason = reason
	t.OTPHash = nil
	t.OTPIssuedAt = nil
	t.archive(now)
	return nil
}

func (t *Ticket) touch(now time.Time) {
	t.UpdatedAt = now
}

func (t *Ticket) archive(now time.Time) {
	archived := now
	t.ArchivedAt = &archived
	t.touch(now)
}
