// Package adaptertest is a shared conformance suite run against every rig
// adapter. It verifies the behavior the command and poll layers rely on
// regardless of backend protocol.
package adaptertest
