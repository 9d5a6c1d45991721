// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
)

// Responder writes standardized errors to HTTP responses.
type Responder struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewResponder(logger Logger) *Responder {
	return &Responder{logger: logger}
}

// StatusCode maps an error code to its HTTP status.
func StatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeTemplateRenderError:
		return http.StatusUnprocessableEntity
	case ErrCodeChannelError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Write normalizes err and writes it as a JSON error envelope.
func (r *Responder) Write(w http.ResponseWriter, err error) {
	stdErr := AsError(err)
	status := StatusCode(stdErr.Code)

	fields := map[string]interface{}{
		"code":    stdErr.Code,
		"status":  status,
		"details": stdErr.Details,
	}
	if status >= 500 {
		r.logger.Error(stdErr.Message, fields)
	} else {
		r.logger.Warn(stdErr.Message, fields)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": stdErr})
}
