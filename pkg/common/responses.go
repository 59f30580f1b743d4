package common

import (
	"encoding/json"
	"net/http"
)

// envelope wraps every successful response body
type envelope struct {
	Success bool          `json:"success"`
	Data    interface{}   `json:"data,omitempty"`
	Meta    *envelopeMeta `json:"meta,omitempty"`
}

type envelopeMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Pagination *PageInfo `json:"pagination,omitempty"`
}

// RespondJSON writes data inside the response envelope
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, envelope{Success: status < http.StatusBadRequest, Data: data})
}

// RespondPage writes one page of a listing along with its position
func RespondPage(w http.ResponseWriter, r *http.Request, items interface{}, info *PageInfo) {
	write(w, http.StatusOK, envelope{
		Success: true,
		Data:    items,
		Meta:    &envelopeMeta{RequestID: RequestID(r.Context()), Pagination: info},
	})
}

// RespondNoContent sends a 204
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ParseJSONBody decodes at most maxBytes of the request body into v.
// Unknown fields are rejected.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
