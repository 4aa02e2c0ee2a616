// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/craftcrm/campaign-engine/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the service error taxonomy onto HTTP statuses:
// validation → 400, not-found → 404, state-conflict → 409, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		notFound     *appErrors.ErrCampaignNotFound
		taskNotFound *appErrors.ErrTaskNotFound
		invalidState *appErrors.ErrInvalidCampaignState
		validation   *appErrors.ErrValidation
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &taskNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &invalidState):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
