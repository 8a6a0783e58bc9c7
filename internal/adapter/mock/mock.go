package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/openhamclock/rigd/internal/state"
)

// Defaults seed the mock with a plausible 20m digital-mode setup.
const (
	defaultFrequencyHz = 14074000
	defaultMode        = "USB"
	defaultPassbandHz  = 2700
)

// Adapter is the in-process backend. Writes land synchronously in its own
// fields; polls copy them into the shared store like a real backend read-back
// would.
type Adapter struct {
	store *state.Store

	mu        sync.Mutex
	connected bool
	frequency int64
	mode      string
	passband  int
	ptt       bool
}

// New creates a mock adapter seeded with the defaults.
func New(store *state.Store) *Adapter {
	return &Adapter{
		store:     store,
		frequency: defaultFrequencyHz,
		mode:      defaultMode,
		passband:  defaultPassbandHz,
	}
}

// Connect marks the mock reachable immediately.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()

	a.store.SetConnected(true)
	return nil
}

// Close marks the mock unreachable.
func (a *Adapter) Close() error {
	a.mu.Lock()
	a.connected = false
	a.mu.Unlock()

	a.store.SetConnected(false)
	return nil
}

// Connected reports whether Connect has been called.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// Poll copies the mock's fields into the shared store.
func (a *Adapter) Poll(ctx context.Context) {
	a.mu.Lock()
	connected, freq, mode, passband, ptt := a.connected, a.frequency, a.mode, a.passband, a.ptt
	a.mu.Unlock()

	if !connected {
		return
	}
	a.store.SetFrequency(freq)
	a.store.SetMode(mode)
	a.store.SetPassband(passband)
	a.store.SetPTT(ptt)
	a.store.Touch()
}

// SendCommand accepts any line and reports success.
func (a *Adapter) SendCommand(ctx context.Context, command string) (string, error) {
	return "RPRT 0", nil
}

// SetFrequency stores hz. There is no backend round trip, so the write lands
// in the shared store synchronously; the confirm re-poll only re-reads it.
func (a *Adapter) SetFrequency(ctx context.Context, hz int64) error {
	a.mu.Lock()
	a.frequency = hz
	a.mu.Unlock()

	a.store.SetFrequency(hz)
	return nil
}

// SetMode stores the mode and, when non-zero, the passband width.
func (a *Adapter) SetMode(ctx context.Context, mode string, passbandHz int) error {
	mode = strings.ToUpper(mode)
	a.mu.Lock()
	a.mode = mode
	if passbandHz > 0 {
		a.passband = passbandHz
	}
	a.mu.Unlock()

	a.store.SetMode(mode)
	if passbandHz > 0 {
		a.store.SetPassband(passbandHz)
	}
	return nil
}

// SetPTT stores the transmit state.
func (a *Adapter) SetPTT(ctx context.Context, on bool) error {
	a.mu.Lock()
	a.ptt = on
	a.mu.Unlock()

	a.store.SetPTT(on)
	return nil
}

// Tune succeeds without side effects.
func (a *Adapter) Tune(ctx context.Context) error {
	return nil
}
