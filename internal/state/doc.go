// Package state holds the single shared radio state record and its change
// broadcaster. The store diffs every incoming property against the stored
// value and publishes only real changes, so subscribers never see redundant
// traffic.
package state
