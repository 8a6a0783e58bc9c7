// Package command implements the controller between the HTTP layer and the
// active rig adapter: policy gating for transmit-enable, audit logging and
// confirm re-polls after writes.
package command
