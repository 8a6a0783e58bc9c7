// Package rigctld implements the rig adapter for Hamlib's rigctld TCP line
// protocol. The protocol has no request IDs, so all commands flow through a
// strict one-in-flight FIFO queue over a supervised, auto-reconnecting
// connection.
package rigctld
