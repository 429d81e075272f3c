package api

import (
	"net/http"
	"time"

	"github.com/tkrehbiel/fedlace/connector/data"
)

// MediaPart is a binary attachment posted with a request.
type MediaPart struct {
	FormField   string // multipart field name; empty posts the raw bytes as the body
	FileName    string
	ContentType string
	Data        []byte
	Fields      map[string]string // extra multipart form values
}

// Request is what the connector asks the transport to execute.
type Request struct {
	Routine  Routine
	URI      string
	PostBody data.Node // nil for a GET
	Media    *MediaPart
	Headers  http.Header
	// Anonymous requests carry no credentials, e.g. OAuth bootstrap calls.
	Anonymous bool
}

func NewRequest(routine Routine, uri string) Request {
	return Request{Routine: routine, URI: uri}
}

func (r Request) WithPost(body data.Node) Request {
	r.PostBody = body
	return r
}

func (r Request) WithMedia(m *MediaPart) Request {
	r.Media = m
	return r
}

func (r Request) WithHeader(key, value string) Request {
	h := r.Headers.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set(key, value)
	r.Headers = h
	return r
}

func (r Request) Method() string {
	if r.PostBody != nil || r.Media != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// Result is the outcome of executing a Request.
type Result struct {
	Request    Request
	StatusCode int
	Body       []byte
	Object     data.Node     // set when the body is a json object
	Array      []interface{} // set when the body is a json array
	Header     http.Header
	Err        error
	// DelayedUntil is set by the throttler when the request was not sent.
	DelayedUntil time.Time
}

func (r Result) IsDelayed() bool {
	return !r.DelayedUntil.IsZero()
}

func (r Result) HasJSON() bool {
	return r.Object != nil || r.Array != nil
}
