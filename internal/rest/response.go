package rest

import (
	"encoding/json"
	"net/http"

	"github.com/bytedance/sonic"
)

// Response represents an HTTP response with its status code, body, and headers.
// The transport hands back every received response as-is, whatever the status
// code; callers inspect the envelope themselves.
type Response struct {
	// StatusCode is the HTTP status code returned by the server.
	StatusCode int

	// Body contains the raw response body bytes.
	Body []byte

	// Headers contains the response headers as key-value pairs.
	Headers map[string]string
}

// IsSuccess returns true if the status code indicates success (2xx).
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code indicates an error (4xx or 5xx).
func (r *Response) IsError() bool {
	return r.StatusCode >= http.StatusBadRequest
}

// Unmarshal parses the response body into the provided value using sonic.
func (r *Response) Unmarshal(v any) error {
	return sonic.Unmarshal(r.Body, v)
}

// Envelope is the exchange's standard response wrapper.
type Envelope struct {
	Code       string            `json:"code"`
	Data       json.RawMessage   `json:"data,omitempty"`
	ErrorParam map[string]string `json:"errorParam,omitempty"`
	Msg        string            `json:"msg,omitempty"`
}

// IsSuccess reports whether the envelope carries a successful result.
func (e *Envelope) IsSuccess() bool {
	return e.Code == "SUCCESS"
}

// Envelope parses the body into the standard response wrapper.
func (r *Response) Envelope() (*Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(r.Body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
