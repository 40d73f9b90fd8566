package session

// Payload is the per-workflow-family state bag. Each workflow family has its
// own variant so a handler can never read a field another workflow never set.
type Payload interface {
	isPayload()
}

// ChangeKind selects which wireless parameter a WiFi-change workflow edits.
type ChangeKind string

const (
	ChangeName     ChangeKind = "NAME"
	ChangePassword ChangeKind = "PASSWORD"
)

// ApplyMode selects between a single wireless index and all of them.
type ApplyMode string

const (
	ApplySingle ApplyMode = "SINGLE"
	ApplyAll    ApplyMode = "ALL"
)

// WifiChange carries state for the SSID name/password change workflows.
type WifiChange struct {
	Kind        ChangeKind `json:"kind"`
	DeviceRef   string     `json:"deviceRef"`
	SSIDIndices []int      `json:"ssidIndices"`
	Mode        ApplyMode  `json:"mode,omitempty"`
	TargetIndex int        `json:"targetIndex,omitempty"`
	NewValue    string     `json:"newValue,omitempty"`
	// Submitted guards against a retried confirmation re-triggering a batch
	// the gateway already accepted.
	Submitted bool `json:"submitted"`
}

func (*WifiChange) isPayload() {}

// Triage carries state for the incident-report workflow.
type Triage struct {
	DeviceRef string         `json:"deviceRef"`
	Answers   map[string]any `json:"answers"`
	Symptom   string         `json:"symptom,omitempty"`
}

func (*Triage) isPayload() {}

// Fieldwork carries state for technician-side ticket workflows and the
// customer-side completion confirmation.
type Fieldwork struct {
	TicketID string `json:"ticketId"`
	Attempts int    `json:"attempts"`
	Notes    string `json:"notes,omitempty"`
}

func (*Fieldwork) isPayload() {}
