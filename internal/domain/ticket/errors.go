package ticket

import "errors"

var (
	// ErrNotFound covers unknown and archived tickets.
	ErrNotFound = errors.New("ticket not found")
	// ErrInvalidTransition is returned for any transition outside the
	// enumerated lifecycle; the ticket is left unchanged.
	ErrInvalidTransition = errors.New("invalid ticket status transition")
	// ErrAlreadyAssigned is returned when another technician holds the ticket.
	ErrAlreadyAssigned = errors.New("ticket already assigned")
	// ErrExpired is returned when an OTP or completion code is past its
	// validity window, regardless of code correctness.
	ErrExpired = errors.New("code expired")
	// ErrMismatch is returned for a wrong OTP or completion code; the stored
	// code is not consumed.
	ErrMismatch = errors.New("code mismatch")
	// ErrInsufficientEvidence is returned when resolution is attempted with
	// fewer evidence units than required.
	ErrInsufficientEvidence = errors.New("insufficient evidence")
)
