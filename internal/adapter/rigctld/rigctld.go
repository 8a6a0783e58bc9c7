package rigctld

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openhamclock/rigd/internal/adapter"
	"github.com/openhamclock/rigd/internal/state"
)

// reconnectDelay is the fixed wait between reconnect attempts. Deliberately
// not exponential: the backend is a local daemon, not a congested service.
const reconnectDelay = 5 * time.Second

const dialTimeout = 5 * time.Second

// request is one queued protocol command awaiting its response. wantLines is
// how many reply lines the command produces: most produce one, but "m"
// answers with mode and passband on separate lines.
type request struct {
	command   string
	wantLines int
	reply     chan response
}

type response struct {
	line string
	err  error
}

// Adapter speaks the rigctld line protocol over a single TCP connection.
//
// The protocol carries no request IDs, so a response is matched to whatever
// command is currently pending. The adapter therefore keeps an absolute
// one-in-flight discipline: a FIFO queue drained by a single I/O goroutine
// that writes one command and waits for exactly one line before touching the
// next.
type Adapter struct {
	addr      string
	store     *state.Store
	tuneDelay time.Duration

	dial           func(ctx context.Context, addr string) (net.Conn, error)
	reconnectDelay time.Duration

	requests chan request

	mu        sync.Mutex
	conn      net.Conn
	connected bool

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// New creates a rigctld adapter for addr (host:port).
func New(addr string, tuneDelay time.Duration, store *state.Store) *Adapter {
	return &Adapter{
		addr:      addr,
		store:     store,
		tuneDelay: tuneDelay,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, "tcp", addr)
		},
		reconnectDelay: reconnectDelay,
		requests:       make(chan request, 32),
		closed:         make(chan struct{}),
	}
}

// Connect starts the connection supervisor. It returns immediately; link
// health is reported through Connected and the shared state.
func (a *Adapter) Connect(ctx context.Context) error {
	a.wg.Add(1)
	go a.supervise(ctx)
	return nil
}

// Close tears down the link and stops the supervisor.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() { close(a.closed) })

	a.mu.Lock()
	if a.conn != nil {
		_ = a.conn.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()
	return nil
}

// Connected reports live link health.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// supervise dials, serves the connection until it fails, then redials after
// the fixed delay. Runs until ctx is cancelled or Close is called.
func (a *Adapter) supervise(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.closed:
			return
		default:
		}

		conn, err := a.dial(ctx, a.addr)
		if err != nil {
			log.Printf("[WARN] rigctld: dial %s: %v", a.addr, err)
		} else {
			log.Printf("[INFO] rigctld: connected to %s", a.addr)
			a.setConn(conn)
			a.serve(ctx, conn)
			a.dropConn()
		}

		select {
		case <-ctx.Done():
			return
		case <-a.closed:
			return
		case <-time.After(a.reconnectDelay):
		}
	}
}

// serve drains the request queue over conn, one command in flight at a time.
// It returns when the socket errors, the context is cancelled, or the
// adapter is closed.
func (a *Adapter) serve(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case readErr <- err:
		case <-done:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.closed:
			return
		case err := <-readErr:
			log.Printf("[WARN] rigctld: connection lost: %v", err)
			return
		case req := <-a.requests:
			if _, err := fmt.Fprintf(conn, "%s\n", req.command); err != nil {
				req.reply <- response{err: fmt.Errorf("%w: %v", adapter.ErrNotConnected, err)}
				return
			}
			var got []string
			for len(got) < req.wantLines {
				select {
				case line := <-lines:
					got = append(got, line)
					// An error report ends the response early regardless
					// of how many lines were expected.
					if strings.HasPrefix(line, "RPRT ") {
						req.wantLines = len(got)
					}
				case err := <-readErr:
					req.reply <- response{err: fmt.Errorf("%w: %v", adapter.ErrNotConnected, err)}
					log.Printf("[WARN] rigctld: connection lost: %v", err)
					return
				case <-ctx.Done():
					req.reply <- response{err: ctx.Err()}
					return
				case <-a.closed:
					req.reply <- response{err: adapter.ErrNotConnected}
					return
				}
			}
			req.reply <- response{line: strings.Join(got, "\n")}
		}
	}
}

func (a *Adapter) setConn(conn net.Conn) {
	// A sender that passed the health check just as the old link dropped can
	// enqueue after failQueued's drain. Reject those leftovers before going
	// live: a command from before the outage must not fire on the new link.
	a.failQueued()

	a.mu.Lock()
	a.conn = conn
	a.connected = true
	a.mu.Unlock()

	a.store.SetConnected(true)
}

func (a *Adapter) dropConn() {
	a.mu.Lock()
	a.conn = nil
	a.connected = false
	a.mu.Unlock()

	a.store.SetConnected(false)
	a.failQueued()
}

// failQueued rejects commands queued behind the failed one so their callers
// are not left waiting across the reconnect gap.
func (a *Adapter) failQueued() {
	for {
		select {
		case req := <-a.requests:
			req.reply <- response{err: adapter.ErrNotConnected}
		default:
			return
		}
	}
}

// SendCommand enqueues one protocol line and returns the next line received.
// It fails immediately when the link is down.
func (a *Adapter) SendCommand(ctx context.Context, command string) (string, error) {
	return a.send(ctx, command, 1)
}

func (a *Adapter) send(ctx context.Context, command string, wantLines int) (string, error) {
	if !a.Connected() {
		return "", adapter.ErrNotConnected
	}

	req := request{command: command, wantLines: wantLines, reply: make(chan response, 1)}
	select {
	case a.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp.line, resp.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Poll issues the three read commands in sequence: frequency, mode, transmit
// status. Parse failures on a line are skipped; the next tick retries.
func (a *Adapter) Poll(ctx context.Context) {
	if !a.Connected() {
		return
	}

	if line, err := a.SendCommand(ctx, "f"); err == nil {
		if hz, perr := strconv.ParseInt(strings.TrimSpace(line), 10, 64); perr == nil && hz >= 0 {
			a.store.SetFrequency(hz)
		}
	}

	if reply, err := a.send(ctx, "m", 2); err == nil {
		fields := strings.Fields(reply)
		if len(fields) > 0 {
			a.store.SetMode(fields[0])
		}
		if len(fields) > 1 {
			if passband, perr := strconv.Atoi(fields[1]); perr == nil && passband >= 0 {
				a.store.SetPassband(passband)
			}
		}
	}

	if line, err := a.SendCommand(ctx, "t"); err == nil {
		a.store.SetPTT(strings.TrimSpace(line) == "1")
	}
}

// SetFrequency issues F <hz>.
func (a *Adapter) SetFrequency(ctx context.Context, hz int64) error {
	line, err := a.SendCommand(ctx, fmt.Sprintf("F %d", hz))
	if err != nil {
		return err
	}
	return checkReport(line)
}

// SetMode issues M <mode> <passband>. Passband 0 selects the backend default.
func (a *Adapter) SetMode(ctx context.Context, mode string, passbandHz int) error {
	line, err := a.SendCommand(ctx, fmt.Sprintf("M %s %d", strings.ToUpper(mode), passbandHz))
	if err != nil {
		return err
	}
	return checkReport(line)
}

// SetPTT issues T 1 or T 0.
func (a *Adapter) SetPTT(ctx context.Context, on bool) error {
	v := 0
	if on {
		v = 1
	}
	line, err := a.SendCommand(ctx, fmt.Sprintf("T %d", v))
	if err != nil {
		return err
	}
	return checkReport(line)
}

// Tune keys the transmitter for tuneDelay. rigctld has no dedicated tune
// verb, so the momentary-key fallback is the only path.
func (a *Adapter) Tune(ctx context.Context) error {
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

// checkReport interprets a rigctld status reply. Set commands answer
// "RPRT 0" on success and a non-zero code on failure.
func checkReport(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 2 && fields[0] == "RPRT" && fields[1] != "0" {
		return fmt.Errorf("%w: RPRT %s", adapter.ErrBackend, fields[1])
	}
	return nil
}
