package httpx

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the envelope for errors this service generates itself.
// Backend answers are mirrored untouched and never wrapped in it.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string `json:"request_id"`
}

func JSONError(w http.ResponseWriter, r *http.Request, statusCode int, code string, message string, details []ErrorDetail) {
	resp := ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}}
	if id := RequestIDFrom(r); id != "" {
		resp.Meta = &Meta{RequestID: id}
	}
	WriteJSON(w, statusCode, resp)
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json failed status=%d err=%v", statusCode, err)
	}
}

// WriteRaw mirrors an upstream JSON body and status unchanged.
func WriteRaw(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}
