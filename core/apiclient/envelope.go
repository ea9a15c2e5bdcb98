package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	clientkit "github.com/scriptorium/clientkit"
)

// APIError is a classified backend failure. It wraps either
// clientkit.ErrAuthentication (401 after retry exhaustion) or
// clientkit.ErrNetwork (everything else), so callers branch with errors.Is
// and render Message when needed.
type APIError struct {
	Status  int    // HTTP status, 0 for transport-level failures
	Code    string // machine-readable backend code, may be empty
	Message string // human-readable message
	kind    error  // clientkit.ErrAuthentication or clientkit.ErrNetwork
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// Unwrap exposes the error class for errors.Is.
func (e *APIError) Unwrap() error {
	return e.kind
}

// Response is a successful pipeline result.
type Response struct {
	StatusCode int
	Body       []byte
}

// Data returns the payload of a {"success":true,"data":...} envelope, or the
// whole body when the response is not enveloped.
func (r *Response) Data() []byte {
	if env := gjson.GetBytes(r.Body, "data"); env.Exists() {
		return []byte(env.Raw)
	}
	return r.Body
}

// DecodeData unmarshals the response payload into v.
func (r *Response) DecodeData(v any) error {
	return json.Unmarshal(r.Data(), v)
}

// Message returns the optional top-level message of a success envelope.
func (r *Response) Message() string {
	return gjson.GetBytes(r.Body, "message").String()
}

// decodeAPIError builds an APIError from an HTTP error response. The backend
// emits two envelope shapes; both are probed, nested form first.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status: status,
		kind:   clientkit.ErrNetwork,
	}
	if status == http.StatusUnauthorized {
		apiErr.kind = clientkit.ErrAuthentication
	}

	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		apiErr.Message = msg.String()
		apiErr.Code = gjson.GetBytes(body, "error.code").String()
	} else if msg := gjson.GetBytes(body, "message"); msg.Exists() {
		apiErr.Message = msg.String()
		apiErr.Code = gjson.GetBytes(body, "code").String()
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// networkError wraps a transport-level failure (timeout, connection refused).
func networkError(err error) *APIError {
	return &APIError{
		Message: err.Error(),
		kind:    clientkit.ErrNetwork,
	}
}

// authError builds the terminal error of a forced-logout escalation.
func authError(message string) *APIError {
	if message == "" {
		message = "authentication failed"
	}
	return &APIError{
		Status:  http.StatusUnauthorized,
		Message: message,
		kind:    clientkit.ErrAuthentication,
	}
}
