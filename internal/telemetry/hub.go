package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openhamclock/rigd/internal/state"
)

// Event is one stream frame. The init event carries the full snapshot;
// update events carry a single changed property.
type Event struct {
	Type      string      `json:"type"`
	Prop      string      `json:"prop,omitempty"`
	Value     interface{} `json:"value,omitempty"`
	Connected *bool       `json:"connected,omitempty"`
	Freq      *int64      `json:"freq,omitempty"`
	Mode      *string     `json:"mode,omitempty"`
	Width     *int        `json:"width,omitempty"`
	PTT       *bool       `json:"ptt,omitempty"`
}

// SnapshotFunc supplies the full state for the init event sent on subscribe.
type SnapshotFunc func() state.Snapshot

// Client is one SSE subscriber connection. Events is never closed: the pump
// simply stops draining it, and publishers check done before sending so a
// disconnect racing a state change can never panic the publisher.
type Client struct {
	ID     string
	Writer http.ResponseWriter
	Cancel context.CancelFunc
	Events chan Event
	done   <-chan struct{}
	mu     sync.Mutex // protects Writer access
}

// Hub fans change events out to all subscribed SSE clients.
//
// Each client has a buffered event channel drained by its own pump goroutine;
// a slow client drops events instead of blocking the publisher.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	snapshot  SnapshotFunc
	keepalive time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// NewHub creates a hub. snapshot provides the init event payload; keepalive
// is the interval between comment frames holding idle connections open.
func NewHub(snapshot SnapshotFunc, keepalive time.Duration) *Hub {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &Hub{
		clients:   make(map[string]*Client),
		snapshot:  snapshot,
		keepalive: keepalive,
		done:      make(chan struct{}),
	}
}

// PublishUpdate sends a single-property change event to every subscriber.
// It implements state.Publisher.
func (h *Hub) PublishUpdate(prop string, value interface{}) {
	event := Event{Type: "update", Prop: prop, Value: value}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case <-h.done:
			return
		case <-client.done:
			// Client disconnected after the snapshot was taken; skip it.
		case client.Events <- event:
		case <-time.After(100 * time.Millisecond):
			// Drop rather than block the state writer on a stalled client.
		}
	}
}

// Subscribe registers the connection as a subscriber, sends the initial full
// snapshot, then forwards change events until the client disconnects. It
// blocks for the lifetime of the connection.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	clientCtx, cancel := context.WithCancel(ctx)
	client := &Client{
		ID:     uuid.NewString(),
		Writer: w,
		Cancel: cancel,
		Events: make(chan Event, 64),
		done:   clientCtx.Done(),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	if err := h.sendEvent(client, h.initEvent()); err != nil {
		h.unregister(client.ID)
		return fmt.Errorf("failed to send init event: %w", err)
	}

	h.wg.Add(1)
	defer h.wg.Done()
	h.pump(clientCtx, client)
	return nil
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop cancels all subscriber connections and waits for their pumps to exit.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	for _, client := range h.clients {
		client.Cancel()
	}
	h.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
	}
}

// initEvent builds the full-snapshot event sent once per subscription.
func (h *Hub) initEvent() Event {
	snap := h.snapshot()
	return Event{
		Type:      "init",
		Connected: &snap.Connected,
		Freq:      &snap.FrequencyHz,
		Mode:      &snap.Mode,
		Width:     &snap.PassbandHz,
		PTT:       &snap.PTT,
	}
}

// pump drains the client's event channel onto the wire until the connection
// context is cancelled or a write fails.
func (h *Hub) pump(ctx context.Context, client *Client) {
	defer h.unregister(client.ID)

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-keepalive.C:
			if err := h.sendComment(client); err != nil {
				return
			}
		case event := <-client.Events:
			if err := h.sendEvent(client, event); err != nil {
				return
			}
		}
	}
}

// sendEvent writes one SSE frame and flushes it.
func (h *Hub) sendEvent(client *Client, event Event) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(client.Writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if flusher, ok := client.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// sendComment writes a keepalive comment frame.
func (h *Hub) sendComment(client *Client) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	if _, err := fmt.Fprint(client.Writer, ": keepalive\n\n"); err != nil {
		return err
	}
	if flusher, ok := client.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// unregister removes a client from the hub.
func (h *Hub) unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		client.Cancel()
		delete(h.clients, clientID)
	}
}
