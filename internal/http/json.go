package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/data"
	apperrors "github.com/target/swift-ingestion/internal/errors"
	"github.com/target/swift-ingestion/internal/service"
)

// maxRequestBodyBytes bounds JSON request bodies.
const maxRequestBodyBytes = 1 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
	Field   string
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, errorBody{Error: p.ErrCode, Message: p.Err.Error(), Field: p.Field})
}

// WriteServiceError maps a service or repository error onto a status code.
// Unclassified errors are reported as 500 without their text.
func WriteServiceError(w http.ResponseWriter, err error) {
	WriteError(w, ClassifyError(err))
}

// ClassifyError returns the response parameters WriteServiceError would use for err.
func ClassifyError(err error) ErrorParams {
	switch {
	case errors.Is(err, data.ErrJobNotFound),
		errors.Is(err, data.ErrEvidenceNotFound),
		errors.Is(err, data.ErrConnectorConfigNotFound),
		apperrors.IsNotFound(err):
		return ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err}
	case apperrors.IsValidation(err):
		return ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err, Field: apperrors.GetField(err)}
	case connector.IsUnknownSource(err):
		return ErrorParams{Code: http.StatusBadRequest, ErrCode: "unknown_source", Err: err}
	case apperrors.IsConflict(err), apperrors.IsForeignKey(err):
		return ErrorParams{Code: http.StatusConflict, ErrCode: "conflict", Err: err}
	case errors.Is(err, service.ErrQueueUnavailable):
		return ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "queue_unavailable", Err: err}
	case apperrors.IsTimeout(err):
		return ErrorParams{Code: http.StatusGatewayTimeout, ErrCode: "timeout", Err: err}
	default:
		return ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     errors.New("internal server error"),
		}
	}
}
