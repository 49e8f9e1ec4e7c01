package json

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dgellow/research-hub/internal/log"
)

// Error codes shared by the API handlers
const (
	CodeInvalidJSON         = "INVALID_JSON"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeMissingCode         = "MISSING_CODE"
	CodeTokenExchangeFailed = "TOKEN_EXCHANGE_FAILED"
	CodeInvalidORCID        = "INVALID_ORCID"
	CodeCorruptedData       = "CORRUPTED_DATA"
	CodeLoadError           = "LOAD_ERROR"
	CodeMissingProfileData  = "MISSING_PROFILE_DATA"
	CodeSaveError           = "SAVE_ERROR"
	CodeMissingQuery        = "MISSING_QUERY"
	CodeMissingOutputTypes  = "MISSING_OUTPUT_TYPES"
	CodePipelineError       = "PIPELINE_ERROR"
	CodePipelineUnavailable = "PIPELINE_UNAVAILABLE"
	CodeInternalServerError = "INTERNAL_ERROR"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteResponse writes a JSON response with the given status code
func WriteResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.LogError("Failed to encode JSON response: %v", err)
		return err
	}
	return nil
}

// Write writes a JSON response with 200 OK status
func Write(w http.ResponseWriter, data any) error {
	return WriteResponse(w, http.StatusOK, data)
}

// WriteError writes a JSON error response. errMsg is the human readable
// error; message carries optional detail.
func WriteError(w http.ResponseWriter, statusCode int, code, errMsg, message string) {
	response := ErrorResponse{
		Success:   false,
		Error:     errMsg,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	if err := WriteResponse(w, statusCode, response); err != nil {
		// Fallback to plain text error if JSON encoding fails
		http.Error(w, code+": "+errMsg, statusCode)
	}
}

func WriteBadRequest(w http.ResponseWriter, code, errMsg string) {
	WriteError(w, http.StatusBadRequest, code, errMsg, "")
}

func WriteInternalServerError(w http.ResponseWriter, code, errMsg, message string) {
	WriteError(w, http.StatusInternalServerError, code, errMsg, message)
}

func WriteMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", "")
}

func WriteServiceUnavailable(w http.ResponseWriter, code, errMsg string) {
	WriteError(w, http.StatusServiceUnavailable, code, errMsg, "")
}
