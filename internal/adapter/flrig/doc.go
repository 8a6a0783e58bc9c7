// Package flrig implements the rig adapter for flrig's XML-RPC control
// interface. Calls are stateless HTTP requests; connectivity is inferred from
// per-poll call outcomes rather than a persistent link.
package flrig
