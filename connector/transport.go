package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/data"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

// maxResponseBytes caps what is read of a response body.
const maxResponseBytes = 4 << 20

// execute performs one request against the connection's host. A request
// to an exhausted host budget is not sent and returns a Delayed error.
func (c *Connection) execute(ctx context.Context, req api.Request) (api.Result, error) {
	res := api.Result{Request: req}

	if wait := c.client.throttler.BeforeExecution(req); wait > 0 {
		telemetry.Increment("throttled_requests", 1)
		res.DelayedUntil = time.Now().Add(wait)
		res.Err = &ConnectionError{Status: StatusDelayed, Message: req.Routine.String(), URI: req.URI, Wait: wait}
		return res, res.Err
	}

	u, err := url.Parse(req.URI)
	if err != nil || u.Host == "" {
		res.Err = newError(StatusBadRequest, req.URI, "%s needs an absolute uri", req.Routine)
		return res, res.Err
	}
	if err := c.client.limiter.Wait(ctx, u.Host); err != nil {
		res.Err = &ConnectionError{Status: StatusUnknown, Message: "waiting for " + u.Host, URI: req.URI, Err: err}
		return res, res.Err
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		res.Err = &ConnectionError{Status: StatusBadRequest, Message: "encoding body", URI: req.URI, Err: err}
		return res, res.Err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method(), req.URI, reader)
	if err != nil {
		res.Err = &ConnectionError{Status: StatusBadRequest, URI: req.URI, Err: err}
		return res, res.Err
	}
	for k, v := range req.Headers {
		hr.Header[k] = v
	}
	if contentType != "" && (req.Media != nil || hr.Header.Get("Content-Type") == "") {
		hr.Header.Set("Content-Type", contentType)
	}
	hr.Header.Set("User-Agent", c.client.Config.AppName)

	httpClient := c.http
	if req.Anonymous {
		httpClient = c.client.HTTP
	} else if c.signer != nil {
		if err := c.signer.sign(hr, body); err != nil {
			res.Err = &ConnectionError{Status: StatusBadRequest, URI: req.URI, Err: err}
			return res, res.Err
		}
	}

	telemetry.Increment("http_requests", 1)
	telemetry.Trace("%s %s (%s)", hr.Method, req.URI, req.Routine)
	resp, err := httpClient.Do(hr)
	if err != nil {
		telemetry.Increment("http_failures", 1)
		res.Err = &ConnectionError{Status: StatusUnknown, Message: req.Routine.String(), URI: req.URI, Err: err}
		return res, res.Err
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Header = resp.Header
	res.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		telemetry.Increment("http_failures", 1)
		res.Err = &ConnectionError{Status: StatusUnknown, Message: "reading response", URI: req.URI, Err: err}
		return res, res.Err
	}
	until := c.client.throttler.AfterExecution(res)
	parseJSON(&res)

	if resp.StatusCode >= 400 {
		telemetry.Increment("http_failures", 1)
		cerr := &ConnectionError{
			Status:  statusFromHTTP(resp.StatusCode),
			Message: fmt.Sprintf("%s returned %s", req.Routine, resp.Status),
			URI:     req.URI,
		}
		// a refusal that told us when to come back is a delay, not a failure
		if backOff(resp.StatusCode) && !until.IsZero() {
			cerr.Status = StatusDelayed
			cerr.Wait = time.Until(until)
			res.DelayedUntil = until
		}
		res.Err = cerr
		return res, cerr
	}
	return res, nil
}

func backOff(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// encodeBody renders the post body and its content type. Media with a
// form field goes as multipart form data, media without one as raw bytes.
func encodeBody(req api.Request) ([]byte, string, error) {
	switch {
	case req.Media != nil && req.Media.FormField != "":
		return encodeMultipart(req.Media)
	case req.Media != nil:
		return req.Media.Data, req.Media.ContentType, nil
	case req.PostBody != nil:
		b, err := json.Marshal(req.PostBody)
		return b, "application/json", err
	}
	return nil, "", nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(m *api.MediaPart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(m.FormField), quoteEscaper.Replace(m.FileName)))
	if m.ContentType != "" {
		h.Set("Content-Type", m.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(m.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// parseJSON fills Object or Array when the body is json. Anything else
// is left as raw bytes; an unparsable json body is logged.
func parseJSON(res *api.Result) {
	b := bytes.TrimSpace(res.Body)
	if len(b) == 0 {
		return
	}
	switch b[0] {
	case '{':
		n, err := data.ParseNode(b)
		if err != nil {
			telemetry.Log("malformed json from [%s]: %s", res.Request.URI, telemetry.Fragment(b))
			return
		}
		res.Object = n
	case '[':
		var arr []interface{}
		if err := json.Unmarshal(b, &arr); err != nil {
			telemetry.Log("malformed json from [%s]: %s", res.Request.URI, telemetry.Fragment(b))
			return
		}
		res.Array = arr
	}
}
