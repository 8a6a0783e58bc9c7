package adaptertest

import (
	"context"
	"testing"
	"time"

	"github.com/openhamclock/rigd/internal/adapter"
	"github.com/openhamclock/rigd/internal/state"
)

// Harness bundles an adapter under test with the store it writes to. Cleanup
// may be nil.
type Harness struct {
	Adapter adapter.RadioAdapter
	Store   *state.Store
	Cleanup func()
}

// SetupFunc builds a fresh, connectable harness per subtest.
type SetupFunc func(t *testing.T) Harness

// Run exercises the adapter contract shared by all backends: connect then
// report connected, writes accepted, polls reflecting written values in the
// store, clean close. Backends are expected to be connectable by the time
// Setup returns.
func Run(t *testing.T, setup SetupFunc) {
	t.Run("ConnectReportsConnected", func(t *testing.T) {
		h := setup(t)
		defer h.cleanup()

		if err := h.Adapter.Connect(context.Background()); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		waitConnected(t, h.Adapter)
	})

	t.Run("WritesVisibleAfterPoll", func(t *testing.T) {
		h := setup(t)
		defer h.cleanup()

		ctx := context.Background()
		if err := h.Adapter.Connect(ctx); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		waitConnected(t, h.Adapter)

		if err := h.Adapter.SetFrequency(ctx, 7074000); err != nil {
			t.Fatalf("SetFrequency() error = %v", err)
		}
		if err := h.Adapter.SetMode(ctx, "LSB", 2400); err != nil {
			t.Fatalf("SetMode() error = %v", err)
		}

		poller, ok := h.Adapter.(adapter.Poller)
		if !ok {
			t.Fatalf("adapter does not implement Poller")
		}
		poller.Poll(ctx)

		snap := h.Store.Snapshot()
		if snap.FrequencyHz != 7074000 {
			t.Errorf("FrequencyHz = %d, want 7074000", snap.FrequencyHz)
		}
		if snap.Mode != "LSB" {
			t.Errorf("Mode = %q, want LSB", snap.Mode)
		}
		if snap.LastUpdateAt.IsZero() {
			t.Error("LastUpdateAt not refreshed by poll")
		}
	})

	t.Run("CloseReleases", func(t *testing.T) {
		h := setup(t)
		defer h.cleanup()

		if err := h.Adapter.Connect(context.Background()); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		waitConnected(t, h.Adapter)

		if err := h.Adapter.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})
}

func (h Harness) cleanup() {
	if h.Cleanup != nil {
		h.Cleanup()
	}
}

// waitConnected waits for Connected to flip true, driving polls while it
// waits: supervisor-based backends connect asynchronously and stateless ones
// only learn reachability from a poll.
func waitConnected(t *testing.T, a adapter.RadioAdapter) {
	t.Helper()
	poller, _ := a.(adapter.Poller)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.Connected() {
			return
		}
		if poller != nil {
			poller.Poll(context.Background())
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("adapter never reported connected")
}
