package handler

import (
	"errors"
	"net/http"

	"notetree/internal/domain"
	"notetree/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var (
		conflictErr   *domain.ConflictError
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		cycleErr      *domain.CycleError
	)

	// ConflictError also matches ErrValidation, so it is checked first
	switch {
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), map[string]any{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
	case errors.As(err, &validationErr):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, validationErr.Error(), map[string]any{
			"field": validationErr.Field,
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFoundErr):
		httputil.RespondErrorWithExtras(w, http.StatusNotFound, notFoundErr.Error(), map[string]any{
			"resource_id": notFoundErr.ID,
		})
	case errors.As(err, &cycleErr):
		httputil.RespondErrorWithExtras(w, http.StatusUnprocessableEntity, cycleErr.Error(), map[string]any{
			"dragged_id": cycleErr.DraggedID,
			"target_id":  cycleErr.TargetID,
		})
	case errors.Is(err, domain.ErrNothingToUndo), errors.Is(err, domain.ErrNothingToRedo),
		errors.Is(err, domain.ErrSuperseded):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTransport):
		httputil.RespondError(w, http.StatusBadGateway, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleCreateConflict answers a duplicate-name conflict with the existing resource and 409.
// Other errors go through handleError.
func HandleCreateConflict[T any](w http.ResponseWriter, err error, fetchFn func(id string) (*T, error)) {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) && conflictErr.ResourceID != "" {
		existing, fetchErr := fetchFn(conflictErr.ResourceID)
		if fetchErr != nil {
			handleError(w, fetchErr)
			return
		}
		httputil.RespondJSON(w, http.StatusConflict, existing)
		return
	}

	handleError(w, err)
}

// parseBody decodes JSON into req and runs its validation rules
func parseBody(w http.ResponseWriter, r *http.Request, req interface{ Validate() error }) bool {
	if err := httputil.ParseJSON(w, r, req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
