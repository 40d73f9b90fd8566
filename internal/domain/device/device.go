package device

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_device.go -package=mocks . Gateway,ChangeLog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrUpstream = errors.New("device gateway upstream failure")

// Parameter is one (path, value) pair of a configuration batch.
type Parameter struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

// ApplyResult reports that the backend queued the batch. Accepted means
// queued for asynchronous application only, never that the device applied it.
type ApplyResult struct {
	Accepted bool   `json:"accepted"`
	TaskRef  string `json:"taskRef,omitempty"`
}

// Snapshot is the backend's last-known view of a device.
type Snapshot struct {
	Online     bool              `json:"online"`
	LastSeenAt time.Time         `json:"lastSeenAt"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Gateway is the device-management backend capability. Parameters targeting
// the same device must be submitted as one batch call, not N sequential
// calls, so a mid-batch failure cannot surface as partial application.
type Gateway interface {
	ApplyParameters(ctx context.Context, deviceRef string, params []Parameter) (*ApplyResult, error)
	QueryDeviceSnapshot(ctx context.Context, deviceRef string) (*Snapshot, error)
}

// TR-069 parameter paths for the wireless configuration objects the
// workflows are allowed to touch.

func SSIDNamePath(index int) string {
	return fmt.Sprintf("InternetGatewayDevice.LANDevice.1.WLANConfiguration.%d.SSID", index)
}

func SSIDPassphrasePath(index int) string {
	return fmt.Sprintf("InternetGatewayDevice.LANDevice.1.WLANConfiguration.%d.PreSharedKey.1.KeyPassphrase", index)
}
