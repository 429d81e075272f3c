package data

import (
	"fmt"
	"strings"
)

// MalformedError reports wire data that cannot populate the canonical model.
type MalformedError struct {
	Reason string
	Key    string // property holding the bad value, if any
	Index  int    // array index, -1 for a singular property
	Node   Node   // the enclosing node for diagnostics
	Value  interface{}
}

func Malformed(reason string, n Node) *MalformedError {
	return &MalformedError{Reason: reason, Index: -1, Node: n}
}

func (e *MalformedError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed wire data: ")
	sb.WriteString(e.Reason)
	if e.Key != "" {
		if e.Index >= 0 {
			fmt.Fprintf(&sb, " at %s[%d]", e.Key, e.Index)
		} else {
			fmt.Fprintf(&sb, " at %s", e.Key)
		}
	}
	if e.Node != nil {
		if id := e.Node.ID(); id != "" {
			fmt.Fprintf(&sb, " in [%s]", id)
		}
	}
	return sb.String()
}

// Fragment renders the offending node for logs.
func (e *MalformedError) Fragment() string {
	if e.Node == nil {
		return fmt.Sprintf("%v", e.Value)
	}
	b := e.Node.JSON()
	if len(b) > 300 {
		return string(b[:300]) + "..."
	}
	return string(b)
}
