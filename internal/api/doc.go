// Package api exposes the HTTP surface: status and SSE stream reads, and the
// frequency, mode and PTT write endpoints.
package api
