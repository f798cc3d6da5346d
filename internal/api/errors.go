package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorBody is the JSON body of every 4xx and 5xx response.
type ErrorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// codeValidation marks a well-formed request whose values are out of range.
// Other codes are derived from the HTTP status.
const codeValidation = "validation_error"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone
}

// writeError replies with an ErrorBody. code defaults to the snake_case
// form of the status text, e.g. "not_found" or "service_unavailable".
func writeError(w http.ResponseWriter, status int, message string, code ...string) {
	body := ErrorBody{Status: status, Message: message}
	if len(code) > 0 {
		body.Code = code[0]
	} else {
		body.Code = statusCode(status)
	}
	writeJSON(w, status, body)
}

func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
