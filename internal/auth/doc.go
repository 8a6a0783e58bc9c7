// Package auth provides optional JWT bearer-token protection for the write
// endpoints. Auth is off unless a shared secret is configured; the PTT policy
// gate in the command layer applies regardless.
package auth
