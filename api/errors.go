package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/training-center/center"
)

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps center errors to HTTP statuses:
//
//	NotFoundError                               -> 404
//	Validation, InvalidDate, Overpayment, Conflict -> 400
//	anything else                               -> 500, logged, generic body
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case center.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case center.IsClientError(err):
		resp := ErrorResponse{Error: err.Error()}
		var ve *center.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			resp.Fields = map[string]string{ve.Field: ve.Message}
		}
		var de *center.InvalidDateError
		if errors.As(err, &de) {
			resp.Fields = map[string]string{de.Field: "must be a valid date (YYYY-MM-DD)"}
		}
		writeJSON(w, http.StatusBadRequest, resp)
	default:
		log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// pathID reads a positive integer URL parameter. On failure it writes the
// 400 response and returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "invalid id",
			Fields: map[string]string{name: "must be a positive integer"},
		})
		return 0, false
	}
	return id, true
}
