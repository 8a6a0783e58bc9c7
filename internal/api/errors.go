package api

import (
	"errors"
	"net/http"

	"github.com/openhamclock/rigd/internal/command"
)

// writeCommandError maps controller failures onto HTTP statuses: the PTT
// policy gate is a 403, everything else is a backend failure.
func writeCommandError(w http.ResponseWriter, err error) {
	if errors.Is(err, command.ErrPTTDisabled) {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
