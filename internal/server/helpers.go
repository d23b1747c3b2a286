package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/medterms/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// statusForKind maps an error kind to its HTTP status.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation, models.KindSlug, models.KindUpload:
		return http.StatusBadRequest
	case models.KindAuthorization:
		return http.StatusUnauthorized
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err with the status and code of its kind. Only the
// classified message reaches the client; wrapped causes such as OS errors and
// file paths do not.
func WriteServiceError(w http.ResponseWriter, err error) {
	var e *models.Error
	if !errors.As(err, &e) {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	message := e.Message
	switch {
	case e.Kind == models.KindStoreRead:
		message = "Failed to load terms."
	case message == "":
		message = string(e.Kind)
	}
	WriteErrorWithCode(w, statusForKind(e.Kind), message, string(e.Kind))
}

// writeServiceError logs storage and unclassified failures in full before
// writing the client response.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch models.KindOf(err) {
	case models.KindStoreRead, models.KindStoreWrite, "":
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	}
	WriteServiceError(w, err)
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam returns the path segment after prefix, up to the next slash.
// ok is false when anything follows that segment.
func PathParam(r *http.Request, prefix string) (string, bool) {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := path[len(prefix):]
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx], idx == len(rest)-1
	}
	return rest, true
}
