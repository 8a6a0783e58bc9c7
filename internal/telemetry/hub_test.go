package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openhamclock/rigd/internal/state"
)

// threadSafeResponseWriter guards writes because the hub's pump goroutine and
// the test both touch the body.
type threadSafeResponseWriter struct {
	mu     sync.Mutex
	header http.Header
	body   strings.Builder
	status int
}

func newThreadSafeResponseWriter() *threadSafeResponseWriter {
	return &threadSafeResponseWriter{header: make(http.Header), status: http.StatusOK}
}

func (w *threadSafeResponseWriter) Header() http.Header {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.header
}

func (w *threadSafeResponseWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.body.Write(data)
}

func (w *threadSafeResponseWriter) WriteHeader(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
}

func (w *threadSafeResponseWriter) Flush() {}

func (w *threadSafeResponseWriter) Body() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.body.String()
}

func testSnapshot() state.Snapshot {
	return state.Snapshot{
		Connected:   true,
		FrequencyHz: 14074000,
		Mode:        "USB",
		PassbandHz:  2700,
	}
}

// subscribe runs Subscribe in the background and waits for the init event to
// land in the writer.
func subscribe(t *testing.T, hub *Hub, w *threadSafeResponseWriter) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/stream", nil)
	go func() { _ = hub.Subscribe(ctx, w, r.WithContext(ctx)) }()

	waitFor(t, func() bool { return strings.Contains(w.Body(), "event: init") })
	return cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSubscribeSendsInitSnapshot(t *testing.T) {
	hub := NewHub(testSnapshot, time.Minute)
	defer hub.Stop()

	w := newThreadSafeResponseWriter()
	cancel := subscribe(t, hub, w)
	defer cancel()

	body := w.Body()
	for _, want := range []string{
		`"type":"init"`,
		`"connected":true`,
		`"freq":14074000`,
		`"mode":"USB"`,
		`"width":2700`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("init event missing %s in %q", want, body)
		}
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/event-stream") {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestInitEventKeepsZeroValues(t *testing.T) {
	hub := NewHub(func() state.Snapshot { return state.Snapshot{} }, time.Minute)
	defer hub.Stop()

	w := newThreadSafeResponseWriter()
	cancel := subscribe(t, hub, w)
	defer cancel()

	// Zero-valued snapshot fields must still appear: a client joining before
	// the first poll needs explicit false/zero values, not absent keys.
	body := w.Body()
	for _, want := range []string{`"connected":false`, `"freq":0`, `"ptt":false`} {
		if !strings.Contains(body, want) {
			t.Errorf("init event missing %s in %q", want, body)
		}
	}
}

func TestPublishUpdateReachesSubscriber(t *testing.T) {
	hub := NewHub(testSnapshot, time.Minute)
	defer hub.Stop()

	w := newThreadSafeResponseWriter()
	cancel := subscribe(t, hub, w)
	defer cancel()

	hub.PublishUpdate(state.PropFreq, int64(7074000))
	waitFor(t, func() bool { return strings.Contains(w.Body(), `"prop":"freq"`) })

	if !strings.Contains(w.Body(), `"value":7074000`) {
		t.Errorf("update event missing value in %q", w.Body())
	}
	if !strings.Contains(w.Body(), "event: update") {
		t.Errorf("update frame missing event line in %q", w.Body())
	}
}

func TestUpdateEventCarriesFalseValue(t *testing.T) {
	hub := NewHub(testSnapshot, time.Minute)
	defer hub.Stop()

	w := newThreadSafeResponseWriter()
	cancel := subscribe(t, hub, w)
	defer cancel()

	// A boxed false is a non-nil interface value, so omitempty keeps it.
	hub.PublishUpdate(state.PropPTT, false)
	waitFor(t, func() bool { return strings.Contains(w.Body(), `"prop":"ptt"`) })

	if !strings.Contains(w.Body(), `"value":false`) {
		t.Errorf("ptt-off update lost its value in %q", w.Body())
	}
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	hub := NewHub(testSnapshot, time.Minute)
	defer hub.Stop()

	w := newThreadSafeResponseWriter()
	cancel := subscribe(t, hub, w)

	if got := hub.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", got)
	}

	cancel()
	waitFor(t, func() bool { return hub.SubscriberCount() == 0 })
}

func TestPublishRacingDisconnect(t *testing.T) {
	// A client disconnect must never take the publisher down with it: the
	// hub snapshot taken by PublishUpdate can hold a client whose pump has
	// already exited.
	hub := NewHub(testSnapshot, time.Minute)
	defer hub.Stop()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(0); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			hub.PublishUpdate(state.PropFreq, i)
		}
	}()

	for i := 0; i < 200; i++ {
		w := newThreadSafeResponseWriter()
		cancel := subscribe(t, hub, w)
		cancel()
	}

	close(stop)
	wg.Wait()
	waitFor(t, func() bool { return hub.SubscriberCount() == 0 })
}

func TestPublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub(testSnapshot, time.Minute)
	defer hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.PublishUpdate(state.PropMode, "CW")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PublishUpdate blocked with no subscribers")
	}
}

func TestKeepaliveComment(t *testing.T) {
	hub := NewHub(testSnapshot, 20*time.Millisecond)
	defer hub.Stop()

	w := newThreadSafeResponseWriter()
	cancel := subscribe(t, hub, w)
	defer cancel()

	waitFor(t, func() bool { return strings.Contains(w.Body(), ": keepalive") })
}
