package command

import (
	"context"
	"errors"
	"time"

	"github.com/openhamclock/rigd/internal/adapter"
)

// Errors surfaced to the API layer before any adapter call is made.
var (
	// ErrPTTDisabled is the policy failure: transmit-enable was requested
	// but the server configuration forbids it. A safety fuse, not a bug
	// path.
	ErrPTTDisabled = errors.New("PTT disabled in configuration")
)

// confirmDelay is how long after a completed write the confirm re-poll runs.
const confirmDelay = 100 * time.Millisecond

// AuditLogger records control actions. Satisfied by *audit.Logger.
type AuditLogger interface {
	Record(action string, params map[string]interface{}, err error, latency time.Duration)
}

// Repoller schedules one extra poll. Satisfied by *poll.Scheduler.
type Repoller interface {
	KickAfter(d time.Duration)
}

// Controller is the single write path from the HTTP layer to the active
// adapter. It applies the PTT policy gate, audits every action and schedules
// the confirm re-poll after each completed write.
type Controller struct {
	adapter    adapter.RadioAdapter
	repoller   Repoller
	audit      AuditLogger
	pttEnabled bool
	tuneDelay  time.Duration
}

// NewController creates a controller for the active adapter. repoller and
// auditLogger may be nil (no confirm polls / no audit trail).
func NewController(a adapter.RadioAdapter, repoller Repoller, auditLogger AuditLogger, pttEnabled bool, tuneDelay time.Duration) *Controller {
	return &Controller{
		adapter:    a,
		repoller:   repoller,
		audit:      auditLogger,
		pttEnabled: pttEnabled,
		tuneDelay:  tuneDelay,
	}
}

// SetFrequency tunes the rig to hz. With tune set, the adapter's tune cycle
// is scheduled tuneDelay after the frequency write completes.
func (c *Controller) SetFrequency(ctx context.Context, hz int64, tune bool) error {
	start := time.Now()
	err := c.adapter.SetFrequency(ctx, hz)
	c.record("setFrequency", map[string]interface{}{"freq": hz, "tune": tune}, err, start)
	if err != nil {
		return err
	}

	c.confirm()
	if tune {
		time.AfterFunc(c.tuneDelay, func() {
			tuneStart := time.Now()
			tuneErr := c.adapter.Tune(context.Background())
			c.record("tune", nil, tuneErr, tuneStart)
		})
	}
	return nil
}

// SetMode selects the operating mode and optional passband width.
func (c *Controller) SetMode(ctx context.Context, mode string, passbandHz int) error {
	start := time.Now()
	err := c.adapter.SetMode(ctx, mode, passbandHz)
	c.record("setMode", map[string]interface{}{"mode": mode, "passband": passbandHz}, err, start)
	if err != nil {
		return err
	}

	c.confirm()
	return nil
}

// SetPTT keys or unkeys the transmitter. Enabling transmit is rejected before
// any adapter call when the configuration forbids it.
func (c *Controller) SetPTT(ctx context.Context, on bool) error {
	start := time.Now()
	if on && !c.pttEnabled {
		c.record("setPTT", map[string]interface{}{"ptt": on}, ErrPTTDisabled, start)
		return ErrPTTDisabled
	}

	err := c.adapter.SetPTT(ctx, on)
	c.record("setPTT", map[string]interface{}{"ptt": on}, err, start)
	if err != nil {
		return err
	}

	c.confirm()
	return nil
}

// Tune runs the adapter's tune cycle immediately.
func (c *Controller) Tune(ctx context.Context) error {
	start := time.Now()
	err := c.adapter.Tune(ctx)
	c.record("tune", nil, err, start)
	return err
}

// confirm schedules the post-write re-poll so the stored state reflects what
// the backend actually applied rather than an optimistic local update.
func (c *Controller) confirm() {
	if c.repoller != nil {
		c.repoller.KickAfter(confirmDelay)
	}
}

func (c *Controller) record(action string, params map[string]interface{}, err error, start time.Time) {
	if c.audit != nil {
		c.audit.Record(action, params, err, time.Since(start))
	}
}
