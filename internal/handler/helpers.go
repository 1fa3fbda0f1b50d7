package handler

import (
	"net/http"

	"zotion/internal/domain"
	"zotion/internal/httputil"
)

// handleError converts domain errors to HTTP responses.
// Unexpected errors are reported as 500 without their message.
func handleError(w http.ResponseWriter, err error) {
	status := domain.StatusOf(err, http.StatusInternalServerError)
	if status == http.StatusInternalServerError {
		httputil.RespondError(w, status, "internal server error")
		return
	}
	httputil.RespondError(w, status, err.Error())
}

// PathParam returns the named path value, responding 400 when it is empty.
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	return value, true
}
