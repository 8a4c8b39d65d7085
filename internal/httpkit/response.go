// Package httpkit holds the HTTP wire helpers shared by the API handlers:
// the JSON request decoder, the response writers and the error envelope.
package httpkit

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope is the error shape every endpoint returns. Details is
// machine-readable context, e.g. the offending field of a validation
// failure or the shortfall of a rejected reservation.
type ErrorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// DecodeJSON decodes a request body strictly: unknown fields are an
// error, so client typos surface instead of being dropped.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	var env ErrorEnvelope
	env.Error.Code = code
	env.Error.Message = msg
	env.Error.Details = details
	WriteJSON(w, status, env)
}
