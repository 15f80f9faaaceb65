package middleware

import (
	"encoding/json"
	"net/http"
)

// Error types of the JSON error envelope.
const (
	ErrorTypeInvalidRequest     = "invalid_request"
	ErrorTypeNotFound           = "not_found"
	ErrorTypeRequestTooLarge    = "request_too_large"
	ErrorTypeServerError        = "server_error"
	ErrorTypeBadGateway         = "bad_gateway"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeGatewayTimeout     = "gateway_timeout"
)

// ErrorResponse is the body of every API error:
//
//	{"error": {"type": "not_found", "message": "verdict record not found"}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StatusCode returns the HTTP status for an error type.
func StatusCode(errorType string) int {
	switch errorType {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorTypeBadGateway:
		return http.StatusBadGateway
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the error envelope with the status of errorType.
func WriteError(w http.ResponseWriter, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(errorType))
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{Type: errorType, Message: message}})
}
