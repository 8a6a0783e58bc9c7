// Package adapter defines the RadioAdapter contract implemented by the
// rigctld, flrig and mock backends, plus the normalized error set shared by
// all of them.
//
// One adapter instance exists per process; the active backend is selected
// once at startup from configuration. Adapters are the only writers of the
// shared radio state.
package adapter
