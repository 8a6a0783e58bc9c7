// Package telemetry implements the SSE hub for the rig daemon.
//
// Each subscriber receives one init event with the full radio state snapshot
// followed only by incremental update events, one per changed property. The
// hub never blocks a state writer: slow subscribers drop events.
package telemetry
