// Package mock implements an in-process rig backend for development and
// tests. It holds plausible HF state, accepts every write and never
// disconnects.
package mock
