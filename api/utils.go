package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"agora/core"
	"agora/service"
	"agora/storage"
	"agora/util"

	"go.uber.org/zap"
)

// maxRequestBodySize bounds JSON request bodies
const maxRequestBodySize = 1 << 20

// maxErrorMessageLength bounds error text sent to clients
const maxErrorMessageLength = 300

var connectionStringPattern = regexp.MustCompile(`(?:mongodb|mongodb\+srv|redis)://[^\s"']+`)

// errorResponse is the JSON body of every error reply
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// sanitizeErrorMessage strips connection strings and tokens, then bounds the length
func sanitizeErrorMessage(message string) string {
	message = connectionStringPattern.ReplaceAllString(message, "[DATABASE_CONNECTION]")
	message = util.SanitizeString(message)
	if runes := []rune(message); len(runes) > maxErrorMessageLength {
		message = string(runes[:maxErrorMessageLength-3]) + "..."
	}
	return message
}

// writeError writes a JSON error response to the client and logs it. Server
// errors are logged with the full cause; client errors at debug level.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	requestID, _ := GetRequestID(r.Context())
	if logger != nil {
		fields := []interface{}{
			"status_code", statusCode,
			"path", r.URL.Path,
			"request_id", requestID,
		}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}
		if statusCode >= http.StatusInternalServerError {
			logger.Errorw(message, fields...)
		} else {
			logger.Debugw(message, fields...)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:     sanitizeErrorMessage(message),
		RequestID: requestID,
	})
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrSelfVoteForbidden):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDuplicateVote),
		errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, service.ErrContention):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes the response for an error returned by a service
func (a *API) handleServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = fmt.Sprintf("Failed to %s", operation)
	}
	writeError(w, r, status, message, err, a.logger)
}

// respondJSON writes a JSON response
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// response already started, nothing more to send
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
	}
}

// decodeJSONBody decodes a bounded JSON body, rejecting unknown fields and
// trailing data
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("%w: Content-Type must be application/json", core.ErrValidation)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", core.ErrValidation)
		}
		return fmt.Errorf("%w: malformed JSON: %v", core.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", core.ErrValidation)
	}
	return nil
}
