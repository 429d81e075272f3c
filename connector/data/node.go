package data

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Node is a decoded JSON object as received from or sent to a remote server.
// Accessors never fail: a missing or mistyped property reads as its zero value.
type Node map[string]interface{}

const idProperty = "id"

// ParseNode decodes a JSON object. Arrays and scalars are rejected.
func ParseNode(b []byte) (Node, error) {
	var n Node
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, &MalformedError{Reason: fmt.Sprintf("not a json object: %s", err), Index: -1, Value: string(b)}
	}
	return n, nil
}

// ID returns the "id" property, or an empty string.
func (n Node) ID() string {
	switch s := n[idProperty].(type) {
	case string:
		return strings.TrimSpace(s)
	case fmt.Stringer:
		return s.String()
	}
	return ""
}

func (n Node) Has(key string) bool {
	v, ok := n[key]
	return ok && v != nil
}

// String returns a string property. Numbers are formatted, anything else reads as "".
func (n Node) String(key string) string {
	switch v := n[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// FirstString returns the first non-empty string among the keys.
func (n Node) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := n.String(k); s != "" {
			return s
		}
	}
	return ""
}

func (n Node) Bool(key string) bool {
	switch v := n[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func (n Node) Int(key string) int64 {
	switch v := n[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		i, _ := v.Int64()
		return i
	}
	return 0
}

// Object returns a nested object property.
func (n Node) Object(key string) (Node, bool) {
	switch v := n[key].(type) {
	case map[string]interface{}:
		return Node(v), true
	case Node:
		return v, true
	}
	return nil, false
}

// Array returns a nested array property.
func (n Node) Array(key string) ([]interface{}, bool) {
	v, ok := n[key].([]interface{})
	return v, ok
}

// Time parses the first key holding an RFC 3339 timestamp.
func (n Node) Time(keys ...string) time.Time {
	for _, k := range keys {
		s := n.String(k)
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// URL reads a property that is either a plain url string or a link object
// ({"href": ...} or {"url": ...}), or an array of either.
func (n Node) URL(key string) string {
	refs, _ := Refs(n, key)
	for _, r := range refs {
		if r.IsID() {
			return r.ID()
		}
		if s := r.Object().FirstString("href", "url"); s != "" {
			return s
		}
	}
	return ""
}

func (n Node) JSON() []byte {
	b, err := json.Marshal(n)
	if err != nil {
		return nil
	}
	return b
}
