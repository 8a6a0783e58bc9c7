package flrig

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"

	"github.com/openhamclock/rigd/internal/adapter"
	"github.com/openhamclock/rigd/internal/state"
)

// floatEpsilon is added to outgoing frequencies. An integral value would be
// serialized as an XML-RPC int, which flrig rejects; the fraction forces
// double encoding on the wire.
const floatEpsilon = 0.001

// rpcClient is the XML-RPC call surface, satisfied by *xmlrpc.Client and by
// test stubs.
type rpcClient interface {
	Call(serviceMethod string, args interface{}, reply interface{}) error
	Close() error
}

// Adapter speaks flrig's XML-RPC protocol. Each call is an independent HTTP
// request, so no command queue is needed: the transport is connectionless
// and failures never stall a shared stream.
type Adapter struct {
	store     *state.Store
	client    rpcClient
	tuneDelay time.Duration

	mu        sync.Mutex
	connected bool
}

// New creates an flrig adapter for addr (host:port).
func New(addr string, tuneDelay time.Duration, store *state.Store) (*Adapter, error) {
	client, err := xmlrpc.NewClient(fmt.Sprintf("http://%s/", addr), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	return &Adapter{store: store, client: client, tuneDelay: tuneDelay}, nil
}

// newWithClient wires a caller-supplied RPC client. Used by tests.
func newWithClient(client rpcClient, tuneDelay time.Duration, store *state.Store) *Adapter {
	return &Adapter{store: store, client: client, tuneDelay: tuneDelay}
}

// Connect is a no-op: there is no persistent link. Connectivity is derived
// from call outcomes, starting with the first poll tick.
func (a *Adapter) Connect(ctx context.Context) error {
	return nil
}

// Close releases the HTTP client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Connected reports whether the most recent poll reached the backend.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// Poll issues the three read calls. Each call succeeds or fails on its own; a
// frequency-read failure does not block the mode or PTT read in the same
// tick. Any success marks the backend reachable; total failure while
// previously connected flips it unreachable. No reconnect scheduling is
// needed: the next tick simply retries.
func (a *Adapter) Poll(ctx context.Context) {
	reachable := false

	var freq string
	if err := a.client.Call("rig.get_vfo", nil, &freq); err == nil {
		reachable = true
		if f, perr := strconv.ParseFloat(strings.TrimSpace(freq), 64); perr == nil && f >= 0 {
			a.store.SetFrequency(int64(f))
		}
	}

	var mode string
	if err := a.client.Call("rig.get_mode", nil, &mode); err == nil {
		reachable = true
		a.store.SetMode(mode)
	}

	var ptt int
	if err := a.client.Call("rig.get_ptt", nil, &ptt); err == nil {
		reachable = true
		a.store.SetPTT(ptt != 0)
	}

	a.setConnected(reachable)
}

func (a *Adapter) setConnected(on bool) {
	a.mu.Lock()
	changed := a.connected != on
	a.connected = on
	a.mu.Unlock()

	if changed {
		if on {
			log.Printf("[INFO] flrig: backend reachable")
		} else {
			log.Printf("[WARN] flrig: backend unreachable")
		}
		a.store.SetConnected(on)
	}
}

// SendCommand calls the named XML-RPC method with no arguments and returns
// the stringified result.
func (a *Adapter) SendCommand(ctx context.Context, command string) (string, error) {
	var result interface{}
	if err := a.client.Call(command, nil, &result); err != nil {
		return "", fmt.Errorf("%w: %v", adapter.ErrBackend, err)
	}
	return fmt.Sprint(result), nil
}

// SetFrequency calls rig.set_vfo with the epsilon-adjusted value.
func (a *Adapter) SetFrequency(ctx context.Context, hz int64) error {
	var result interface{}
	if err := a.client.Call("rig.set_vfo", float64(hz)+floatEpsilon, &result); err != nil {
		return fmt.Errorf("%w: %v", adapter.ErrBackend, err)
	}
	return nil
}

// SetMode calls rig.set_mode. flrig manages passband itself; the width
// argument is ignored for this backend.
func (a *Adapter) SetMode(ctx context.Context, mode string, passbandHz int) error {
	var result interface{}
	if err := a.client.Call("rig.set_mode", strings.ToUpper(mode), &result); err != nil {
		return fmt.Errorf("%w: %v", adapter.ErrBackend, err)
	}
	return nil
}

// SetPTT calls rig.set_ptt.
func (a *Adapter) SetPTT(ctx context.Context, on bool) error {
	v := 0
	if on {
		v = 1
	}
	var result interface{}
	if err := a.client.Call("rig.set_ptt", v, &result); err != nil {
		return fmt.Errorf("%w: %v", adapter.ErrBackend, err)
	}
	return nil
}

// Tune tries the native rig.tune method first; backends without one get the
// momentary-key fallback: key down, wait tuneDelay, key up.
func (a *Adapter) Tune(ctx context.Context) error {
	var result interface{}
	if err := a.client.Call("rig.tune", nil, &result); err == nil {
		return nil
	}

	if err := a.SetPTT(ctx, true); err != nil {
		return err
	}
	select {
	case <-time.After(a.tuneDelay):
	case <-ctx.Done():
		_ = a.SetPTT(context.Background(), false)
		return ctx.Err()
	}
	return a.SetPTT(ctx, false)
}
