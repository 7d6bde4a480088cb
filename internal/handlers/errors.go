package handlers

import (
	"errors"
	"net/http"

	"github.com/albertomartinsanchez/breakfast-backend/internal/services"
	"github.com/albertomartinsanchez/breakfast-backend/pkg/utils"
)

// writeServiceError maps the services error classes onto HTTP statuses:
// not-found is 404, the state machine and validation classes are 400 with
// the rule text, anything else is an opaque 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrNotPending),
		errors.Is(err, services.ErrValidation):
		utils.Error(w, http.StatusBadRequest, err.Error())
	default:
		utils.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
