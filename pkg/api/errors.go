package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Client errors.
var (
	ErrNoToken     = errors.New("api: not logged in")
	ErrNoCSRFToken = errors.New("api: backend did not set an XSRF-TOKEN cookie")
	ErrBadResponse = errors.New("api: unexpected response body")
)

// StatusCSRFMismatch is Laravel's status for a stale or missing CSRF token.
const StatusCSRFMismatch = 419

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// FieldErrors returns the first message per field.
func (e *APIError) FieldErrors() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for field, msgs := range e.Errors {
		if len(msgs) > 0 {
			out[field] = msgs[0]
		}
	}
	return out
}

// Detail renders the message followed by the field messages, one per line.
func (e *APIError) Detail() string {
	var b strings.Builder
	b.WriteString(e.Message)
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		for _, m := range e.Errors[f] {
			fmt.Fprintf(&b, "\n  %s: %s", f, m)
		}
	}
	return b.String()
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsNetwork reports whether err is a transport failure: the backend was never
// reached or the connection dropped before a response arrived.
func IsNetwork(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// GenericMessage is the fallback shown when the body carries no message.
func GenericMessage(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "Your session has expired. Please log in again."
	case status == http.StatusForbidden:
		return "You do not have permission to do that."
	case status == http.StatusNotFound:
		return "The requested resource was not found."
	case status == StatusCSRFMismatch:
		return "Your session token expired. Please try again."
	case status == http.StatusUnprocessableEntity:
		return "Some fields are invalid."
	case status == http.StatusTooManyRequests:
		return "Too many requests. Please wait a moment and try again."
	case status >= 500:
		return "The server ran into a problem. Please try again later."
	}
	return "Something went wrong. Please try again."
}

type errorBody struct {
	Message string                     `json:"message"`
	Error   string                     `json:"error"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

func parseError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
		if len(body.Errors) > 0 {
			apiErr.Errors = make(map[string][]string, len(body.Errors))
			for field, raw := range body.Errors {
				var list []string
				if json.Unmarshal(raw, &list) != nil {
					var one string
					if json.Unmarshal(raw, &one) != nil {
						continue
					}
					list = []string{one}
				}
				apiErr.Errors[field] = list
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = GenericMessage(resp.StatusCode)
	}
	return apiErr
}
