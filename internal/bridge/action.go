package bridge

import (
	"context"
	"fmt"

	"github.com/roach88/busbridge/internal/netman"
)

// ActionRequest is an outbound command issued from the poll loop.
//
// The set of actions is closed: SetWifi, ToggleWifi and SwitchNetwork.
// execute switches over them exhaustively.
type ActionRequest interface {
	// Name identifies the action in logs and error records.
	Name() string

	// actionMarker restricts implementations to this package.
	actionMarker()
}

// SetWifi switches the Wi-Fi radio on or off.
type SetWifi struct {
	Enabled bool
}

// ToggleWifi connects or disconnects the Wi-Fi device.
type ToggleWifi struct {
	Enabled bool
}

// SwitchNetwork activates a saved connection by its id.
type SwitchNetwork struct {
	ConnectionID string
}

func (SetWifi) Name() string       { return "set_wifi" }
func (ToggleWifi) Name() string    { return "toggle_wifi" }
func (SwitchNetwork) Name() string { return "switch_network" }

func (SetWifi) actionMarker()       {}
func (ToggleWifi) actionMarker()    {}
func (SwitchNetwork) actionMarker() {}

// pendingAction is a request waiting in the dispatch queue.
type pendingAction struct {
	id  string
	req ActionRequest
}

// execute performs the request against the connection.
// Runs on a background goroutine.
func execute(ctx context.Context, conn netman.Connection, req ActionRequest) error {
	switch a := req.(type) {
	case SetWifi:
		return conn.SetWifi(ctx, a.Enabled)
	case ToggleWifi:
		return conn.ToggleWifi(ctx, a.Enabled)
	case SwitchNetwork:
		return conn.SwitchNetwork(ctx, a.ConnectionID)
	default:
		return fmt.Errorf("unknown action %T", req)
	}
}

// errorCodeFor maps a request to the code recorded when it fails.
func errorCodeFor(req ActionRequest) ErrorCode {
	switch req.(type) {
	case SetWifi:
		return ErrCodeSetWifi
	case ToggleWifi:
		return ErrCodeToggleWifi
	case SwitchNetwork:
		return ErrCodeSwitchNetwork
	default:
		return ErrCodeUnknownAction
	}
}
