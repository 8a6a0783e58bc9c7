package state

import (
	"sync"
	"time"
)

// Publisher receives one event per real property change. The telemetry hub
// implements it; tests substitute a recorder.
type Publisher interface {
	PublishUpdate(prop string, value interface{})
}

// Property names as they appear on the wire, shared by /status and /stream.
const (
	PropFreq      = "freq"
	PropMode      = "mode"
	PropWidth     = "width"
	PropPTT       = "ptt"
	PropConnected = "connected"
)

// Snapshot is a point-in-time copy of the radio state.
type Snapshot struct {
	Connected    bool
	FrequencyHz  int64
	Mode         string
	PassbandHz   int
	PTT          bool
	LastUpdateAt time.Time
}

// Store owns the single mutable radio state record. Adapters and the command
// layer write it; the HTTP layer and telemetry hub read snapshots. Every
// successful poll or write confirmation refreshes LastUpdateAt whether or not
// the value changed; only real value changes are published.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	pub  Publisher
	now  func() time.Time
}

// NewStore creates a store publishing change events to pub. A nil pub is
// allowed and disables broadcasting.
func NewStore(pub Publisher) *Store {
	return &Store{pub: pub, now: time.Now}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Touch refreshes LastUpdateAt without changing any value. Used by backends
// whose poll confirmed the link but reported nothing new.
func (s *Store) Touch() {
	s.mu.Lock()
	s.snap.LastUpdateAt = s.now()
	s.mu.Unlock()
}

// SetFrequency records a polled or confirmed frequency in Hz.
func (s *Store) SetFrequency(hz int64) {
	s.mu.Lock()
	changed := s.snap.FrequencyHz != hz
	s.snap.FrequencyHz = hz
	s.snap.LastUpdateAt = s.now()
	s.mu.Unlock()

	if changed {
		s.publish(PropFreq, hz)
	}
}

// SetMode records the adapter-reported operating mode. The value is not
// validated against a fixed set.
func (s *Store) SetMode(mode string) {
	s.mu.Lock()
	changed := s.snap.Mode != mode
	s.snap.Mode = mode
	s.snap.LastUpdateAt = s.now()
	s.mu.Unlock()

	if changed {
		s.publish(PropMode, mode)
	}
}

// SetPassband records the passband width in Hz. Only the rigctld backend
// reports it.
func (s *Store) SetPassband(hz int) {
	s.mu.Lock()
	changed := s.snap.PassbandHz != hz
	s.snap.PassbandHz = hz
	s.snap.LastUpdateAt = s.now()
	s.mu.Unlock()

	if changed {
		s.publish(PropWidth, hz)
	}
}

// SetPTT records the transmit-enable state.
func (s *Store) SetPTT(on bool) {
	s.mu.Lock()
	changed := s.snap.PTT != on
	s.snap.PTT = on
	s.snap.LastUpdateAt = s.now()
	s.mu.Unlock()

	if changed {
		s.publish(PropPTT, on)
	}
}

// SetConnected records backend link health.
func (s *Store) SetConnected(on bool) {
	s.mu.Lock()
	changed := s.snap.Connected != on
	s.snap.Connected = on
	s.snap.LastUpdateAt = s.now()
	s.mu.Unlock()

	if changed {
		s.publish(PropConnected, on)
	}
}

// publish runs outside the store lock so a slow subscriber can never block a
// state write.
func (s *Store) publish(prop string, value interface{}) {
	if s.pub != nil {
		s.pub.PublishUpdate(prop, value)
	}
}
