package connector

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

// ThrottleStore keeps the time until which a host budget is exhausted.
// It is shared by every connection in the process.
type ThrottleStore interface {
	Deadline(key string) (time.Time, bool)
	SetDeadline(key string, until time.Time)
	Clear(key string)
}

type memoryThrottleStore struct {
	lock      sync.Mutex
	deadlines map[string]time.Time
}

func NewThrottleStore() ThrottleStore {
	return &memoryThrottleStore{deadlines: make(map[string]time.Time)}
}

func (s *memoryThrottleStore) Deadline(key string) (time.Time, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	t, ok := s.deadlines[key]
	return t, ok
}

func (s *memoryThrottleStore) SetDeadline(key string, until time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.deadlines[key] = until
}

func (s *memoryThrottleStore) Clear(key string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.deadlines, key)
}

// Throttler refuses requests to a host budget the server reported as
// exhausted, until the reported reset time.
type Throttler struct {
	store ThrottleStore
	now   func() time.Time
}

func NewThrottler(store ThrottleStore) *Throttler {
	if store == nil {
		store = NewThrottleStore()
	}
	return &Throttler{store: store, now: time.Now}
}

func throttleKey(uri string, r api.Routine) string {
	host := uri
	if u, err := url.Parse(uri); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}
	return host + "|" + r.Budget()
}

// BeforeExecution returns how long the request must wait, zero if it may go now.
func (t *Throttler) BeforeExecution(req api.Request) time.Duration {
	key := throttleKey(req.URI, req.Routine)
	until, ok := t.store.Deadline(key)
	if !ok {
		return 0
	}
	if wait := until.Sub(t.now()); wait > 0 {
		return wait
	}
	t.store.Clear(key)
	return 0
}

// defaultRetryAfter is the back-off after a 429 that names no retry time.
const defaultRetryAfter = time.Minute

// AfterExecution records the budget reported with a response and returns
// the deadline it stored, zero when the host may be asked again now.
func (t *Throttler) AfterExecution(res api.Result) time.Time {
	key := throttleKey(res.Request.URI, res.Request.Routine)
	now := t.now()

	switch res.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		until, ok := parseReset(res.Header.Get("Retry-After"), now)
		if !ok && res.StatusCode == http.StatusTooManyRequests {
			until, ok = now.Add(defaultRetryAfter), true
		}
		if ok {
			return t.exhausted(key, until)
		}
	}

	remaining := firstHeader(res.Header, "X-RateLimit-Remaining", "RateLimit-Remaining")
	if remaining == "" {
		return time.Time{}
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(remaining), 64)
	if err != nil || n > 0 {
		return time.Time{}
	}
	until, ok := parseReset(firstHeader(res.Header, "X-RateLimit-Reset", "RateLimit-Reset"), now)
	if !ok {
		return time.Time{}
	}
	return t.exhausted(key, until)
}

func (t *Throttler) exhausted(key string, until time.Time) time.Time {
	t.store.SetDeadline(key, until)
	telemetry.Log("host budget %s exhausted until %s", key, until.UTC().Format(time.RFC3339))
	return until
}

func firstHeader(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// epochThreshold separates "seconds from now" from "unix time" in reset headers
const epochThreshold = 1_000_000_000

// parseReset reads a reset time given as seconds from now, a unix time,
// an RFC 3339 timestamp (Mastodon) or an http date (Retry-After).
func parseReset(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n >= epochThreshold {
			return time.Unix(int64(n), 0), true
		}
		return now.Add(time.Duration(n * float64(time.Second))), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := http.ParseTime(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
