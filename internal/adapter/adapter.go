package adapter

import (
	"context"
)

// Backend type tags. Fixed by configuration at startup, never switched at
// runtime.
const (
	TypeRigctld = "rigctld"
	TypeFlrig   = "flrig"
	TypeMock    = "mock"
)

// RadioAdapter is the stable southbound contract every rig backend implements.
//
// Connect starts the backend link (and, for connection-oriented backends, the
// reconnect loop); it does not block until the link is up. Connected reports
// live link health as observed by the most recent I/O.
type RadioAdapter interface {
	// Connect starts the backend link.
	Connect(ctx context.Context) error

	// Close tears the link down and stops any background goroutines.
	Close() error

	// Connected reports whether the backend link is currently healthy.
	Connected() bool

	// SendCommand issues one raw backend command and returns the raw
	// response text. For the rigctld backend this is a protocol line; for
	// the flrig backend it is an XML-RPC method name.
	SendCommand(ctx context.Context, command string) (string, error)

	// SetFrequency tunes the VFO, in Hz.
	SetFrequency(ctx context.Context, hz int64) error

	// SetMode selects the operating mode and, where the backend supports
	// it, the passband width in Hz (0 selects the backend default).
	SetMode(ctx context.Context, mode string, passbandHz int) error

	// SetPTT keys or unkeys the transmitter. Policy gating happens in the
	// command layer, never here.
	SetPTT(ctx context.Context, on bool) error

	// Tune runs the backend's tune cycle, falling back to a momentary key
	// pulse when no native tune method exists.
	Tune(ctx context.Context) error
}

// Poller is implemented by adapters whose state is refreshed by the poll
// scheduler.
type Poller interface {
	Poll(ctx context.Context)
}
