// Package poll provides the poll scheduler shared by all rig backends: a
// fixed-interval ticker with support for one-shot confirm kicks after writes.
package poll
