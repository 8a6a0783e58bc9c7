package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry is a single audit record, one JSON line per control action.
type Entry struct {
	Timestamp time.Time              `json:"ts"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Outcome   string                 `json:"outcome"`
	Error     string                 `json:"error,omitempty"`
	LatencyMs int64                  `json:"latencyMs"`
}

// Logger writes control-action audit records through a size-rotated file.
type Logger struct {
	mu  sync.Mutex
	out io.WriteCloser
	now func() time.Time
}

// NewLogger creates an audit logger writing rigd-audit.jsonl under logDir.
// Rotation keeps five 10 MB backups for four weeks.
func NewLogger(logDir string) *Logger {
	return &Logger{
		out: &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "rigd-audit.jsonl"),
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
		},
		now: time.Now,
	}
}

// NewLoggerWithWriter creates a logger writing to out. Used by tests.
func NewLoggerWithWriter(out io.WriteCloser) *Logger {
	return &Logger{out: out, now: time.Now}
}

// Record writes one audit entry. err == nil records a success outcome.
func (l *Logger) Record(action string, params map[string]interface{}, err error, latency time.Duration) {
	entry := Entry{
		Timestamp: l.now().UTC(),
		Action:    action,
		Params:    params,
		Outcome:   "success",
		LatencyMs: latency.Milliseconds(),
	}
	if err != nil {
		entry.Outcome = "error"
		entry.Error = err.Error()
	}
	l.write(entry)
}

func (l *Logger) write(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal audit entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write audit entry: %v\n", err)
	}
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}
