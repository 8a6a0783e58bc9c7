// rigd bridges rigctld and flrig rig-control backends into one HTTP and SSE
// API over a shared polled radio state.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/logutils"
	"github.com/spf13/pflag"

	"github.com/openhamclock/rigd/internal/adapter"
	"github.com/openhamclock/rigd/internal/adapter/flrig"
	"github.com/openhamclock/rigd/internal/adapter/mock"
	"github.com/openhamclock/rigd/internal/adapter/rigctld"
	"github.com/openhamclock/rigd/internal/api"
	"github.com/openhamclock/rigd/internal/audit"
	"github.com/openhamclock/rigd/internal/command"
	"github.com/openhamclock/rigd/internal/config"
	"github.com/openhamclock/rigd/internal/poll"
	"github.com/openhamclock/rigd/internal/state"
	"github.com/openhamclock/rigd/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath = pflag.String("config", "", "path to config file (YAML or JSON)")
		rigType    = pflag.String("type", "", "backend type: rigctld, flrig or mock")
		rigHost    = pflag.String("rig-host", "", "backend host")
		rigPort    = pflag.Int("rig-port", 0, "backend port")
		httpPort   = pflag.Int("http-port", 0, "HTTP listen port")
		logLevel   = pflag.String("log-level", "", "log level: DEBUG, INFO, WARN or ERROR")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath, config.Overrides{
		Type:     *rigType,
		RigHost:  *rigHost,
		RigPort:  *rigPort,
		HTTPPort: *httpPort,
		LogLevel: *logLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rigd: %v\n", err)
		os.Exit(1)
	}

	log.SetOutput(&logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"},
		MinLevel: logutils.LogLevel(cfg.Log.Level),
		Writer:   os.Stderr,
	})
	log.SetFlags(log.LstdFlags | log.LUTC)

	if err := run(cfg); err != nil {
		log.Printf("[ERROR] rigd: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The hub needs the store for init snapshots and the store needs the hub
	// for change events; the closure breaks the cycle.
	var store *state.Store
	hub := telemetry.NewHub(func() state.Snapshot { return store.Snapshot() }, 30*time.Second)
	store = state.NewStore(hub)

	rig, err := buildAdapter(cfg, store)
	if err != nil {
		return err
	}

	auditLog := audit.NewLogger(cfg.Log.Dir)
	defer auditLog.Close()

	poller, _ := rig.(adapter.Poller)
	var scheduler *poll.Scheduler
	if poller != nil {
		scheduler = poll.NewScheduler(cfg.Radio.PollInterval(), poller.Poll)
	}

	// Scheduler is also the controller's confirm-repoll hook; a typed nil
	// would defeat its nil check.
	var repoller command.Repoller
	if scheduler != nil {
		repoller = scheduler
	}
	controller := command.NewController(rig, repoller, auditLog, cfg.Radio.PTTEnabled, cfg.Radio.TuneDelay())

	server := api.NewServer(cfg.Server.Addr(), controller, hub, store, cfg.Server.AuthSecret)

	if err := rig.Connect(ctx); err != nil {
		return fmt.Errorf("failed to start %s adapter: %w", cfg.Radio.Type, err)
	}
	if scheduler != nil {
		scheduler.Start(ctx)
	}

	log.Printf("[INFO] rigd: backend %s, poll interval %s, ptt enabled %t",
		cfg.Radio.Type, cfg.Radio.PollInterval(), cfg.Radio.PTTEnabled)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("[INFO] rigd: received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] rigd: http shutdown: %v", err)
	}

	hub.Stop()
	if scheduler != nil {
		scheduler.Stop()
	}
	if err := rig.Close(); err != nil {
		log.Printf("[WARN] rigd: adapter close: %v", err)
	}

	log.Printf("[INFO] rigd: shutdown complete")
	return nil
}

// buildAdapter creates the backend selected by configuration.
func buildAdapter(cfg *config.Config, store *state.Store) (adapter.RadioAdapter, error) {
	switch cfg.Radio.Type {
	case adapter.TypeRigctld:
		return rigctld.New(cfg.Radio.RigAddr(), cfg.Radio.TuneDelay(), store), nil
	case adapter.TypeFlrig:
		return flrig.New(cfg.Radio.RigAddr(), cfg.Radio.TuneDelay(), store)
	case adapter.TypeMock:
		return mock.New(store), nil
	default:
		return nil, fmt.Errorf("unknown radio type %q", cfg.Radio.Type)
	}
}
