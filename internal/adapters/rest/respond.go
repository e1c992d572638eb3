package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/ewilliams-labs/groundswell/internal/core/services"
)

const (
	errCodeNotFound         = "NOT_FOUND"
	errCodeUnauthenticated  = "UNAUTHENTICATED"
	errCodeForbidden        = "FORBIDDEN"
	errCodeInvalidArgument  = "INVALID_ARGUMENT"
	errCodeGenerationFailed = "GENERATION_FAILED"
	errCodeQueueFull        = "QUEUE_FULL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON encodes v before committing the status, so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("ERROR rest: failed to encode response: %v", err)
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("WARN rest: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeErrorWithCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeServiceError maps domain sentinels onto status codes. Generation
// failures carry a code so the client can show its diagnostic overlay.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeNotFound)
	case errors.Is(err, domain.ErrUnauthenticated):
		writeErrorWithCode(w, http.StatusUnauthorized, err.Error(), errCodeUnauthenticated)
	case errors.Is(err, domain.ErrInvalidArgument):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
	case errors.Is(err, domain.ErrGenerationFailed):
		log.Printf("ERROR rest: %v", err)
		writeErrorWithCode(w, http.StatusInternalServerError, err.Error(), errCodeGenerationFailed)
	case errors.Is(err, services.ErrQueueFull):
		writeErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), errCodeQueueFull)
	default:
		log.Printf("ERROR rest: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
