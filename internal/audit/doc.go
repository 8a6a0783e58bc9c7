// Package audit records every control action (frequency, mode, PTT, tune)
// as a JSON line in a size-rotated log file.
package audit
