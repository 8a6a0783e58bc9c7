package api

import (
	"context"
	"net/http"

	"github.com/openhamclock/rigd/internal/command"
	"github.com/openhamclock/rigd/internal/state"
	"github.com/openhamclock/rigd/internal/telemetry"
)

// ControllerPort is the write path the handlers call into.
type ControllerPort interface {
	SetFrequency(ctx context.Context, hz int64, tune bool) error
	SetMode(ctx context.Context, mode string, passbandHz int) error
	SetPTT(ctx context.Context, on bool) error
}

// StreamPort serves SSE subscriptions.
type StreamPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	SubscriberCount() int
}

// StatusPort supplies point-in-time radio state.
type StatusPort interface {
	Snapshot() state.Snapshot
}

var (
	_ ControllerPort = (*command.Controller)(nil)
	_ StreamPort     = (*telemetry.Hub)(nil)
	_ StatusPort     = (*state.Store)(nil)
)
