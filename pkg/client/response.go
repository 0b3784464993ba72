package client

import (
	"net/http"
	"strings"

	"github.com/Sternrassler/canvas-assignments/pkg/record"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// URL is the request URL including the encoded query.
	URL string

	// Exhausted is set when the response is the last transient failure
	// returned after the retry budget ran out.
	Exhausted bool
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode parses the JSON body.
func (r *Response) Decode() (any, error) {
	return record.Decode(r.Body)
}

// StatusError returns an *HTTPError for a non-2xx response and nil otherwise.
func (r *Response) StatusError() error {
	if r.OK() {
		return nil
	}

	httpErr := &HTTPError{
		StatusCode: r.StatusCode,
		ErrorClass: classifyStatus(r.StatusCode),
		URL:        r.URL,
		Message:    statusMessage(r),
	}
	if r.Exhausted {
		httpErr.Err = ErrRetryExhausted
	}
	return httpErr
}

func statusMessage(r *Response) string {
	if text := http.StatusText(r.StatusCode); text != "" {
		return text
	}
	if r.Status != "" {
		return strings.TrimSpace(r.Status)
	}
	return "unexpected status"
}
