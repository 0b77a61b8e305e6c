package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/workflow/analysis"
	"campaign-engine/internal/workflow/session"
)

type errorBody struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Field   string           `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps the engine's error taxonomy onto HTTP statuses:
// invalid input 422, guard and in-flight conflicts 409, unknown
// session 404, remote failures 502.
func writeError(w http.ResponseWriter, err error) {
	var ve *errors.ValidationError
	if stderrors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Code:    errors.ErrCodeValidationFailed,
			Message: ve.Message,
			Field:   ve.Field,
		})
		return
	}

	var gv *errors.GuardViolation
	if stderrors.As(err, &gv) {
		writeJSON(w, http.StatusConflict, errorBody{
			Code:    errors.ErrCodeGuardViolation,
			Message: gv.Error(),
		})
		return
	}

	if stderrors.Is(err, analysis.ErrAnalysisInFlight) {
		writeJSON(w, http.StatusConflict, errorBody{
			Code:    errors.ErrCodeAnalysisInFlight,
			Message: err.Error(),
		})
		return
	}
	if stderrors.Is(err, analysis.ErrRetryNotAllowed) {
		writeJSON(w, http.StatusConflict, errorBody{
			Code:    errors.ErrCodeAnalysisFailed,
			Message: err.Error(),
		})
		return
	}
	if stderrors.Is(err, session.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{
			Code:    errors.ErrCodeSessionNotFound,
			Message: err.Error(),
		})
		return
	}

	var te *errors.TransportError
	if stderrors.As(err, &te) {
		writeJSON(w, http.StatusBadGateway, errorBody{
			Code:    errors.CodeOf(err),
			Message: te.Error(),
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorBody{
		Code:    "INTERNAL_ERROR",
		Message: err.Error(),
	})
}
