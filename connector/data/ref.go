package data

import (
	"errors"
	"fmt"
	"strings"
)

// Ref is a property value that is either an inline object or a bare id string.
// Exactly one of the two is set.
type Ref struct {
	node Node
	id   string
}

func ObjectRef(n Node) Ref {
	if n == nil {
		n = Node{}
	}
	return Ref{node: n}
}

func IDRef(id string) Ref {
	return Ref{id: id}
}

func (r Ref) IsObject() bool {
	return r.node != nil
}

func (r Ref) IsID() bool {
	return r.node == nil
}

// Object is nil for an id reference.
func (r Ref) Object() Node {
	return r.node
}

// ID is the bare id, or the inline object's id property.
func (r Ref) ID() string {
	if r.node != nil {
		return r.node.ID()
	}
	return r.id
}

// Match dispatches on the two shapes of a reference.
func Match[T any](r Ref, onObject func(Node) (T, error), onID func(string) (T, error)) (T, error) {
	if r.IsObject() {
		return onObject(r.node)
	}
	return onID(r.id)
}

// Refs reads a property that may be a single object, a single id string, or an
// array mixing both, preserving source order. Elements that are neither are
// skipped and reported in the returned error; the good elements are still returned.
func Refs(n Node, key string) ([]Ref, error) {
	v, ok := n[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, isArray := v.([]interface{})
	if !isArray {
		ref, err := toRef(v)
		if err != nil {
			return nil, &MalformedError{Reason: err.Error(), Key: key, Index: -1, Node: n, Value: v}
		}
		return []Ref{ref}, nil
	}
	refs := make([]Ref, 0, len(list))
	var errs []error
	for i, e := range list {
		ref, err := toRef(e)
		if err != nil {
			errs = append(errs, &MalformedError{Reason: err.Error(), Key: key, Index: i, Node: n, Value: e})
			continue
		}
		refs = append(refs, ref)
	}
	return refs, errors.Join(errs...)
}

func toRef(v interface{}) (Ref, error) {
	switch t := v.(type) {
	case string:
		id := strings.TrimSpace(t)
		if id == "" {
			return Ref{}, fmt.Errorf("empty id")
		}
		return IDRef(id), nil
	case map[string]interface{}:
		return ObjectRef(Node(t)), nil
	case Node:
		return ObjectRef(t), nil
	}
	return Ref{}, fmt.Errorf("neither object nor id: %T", v)
}

// MapOne maps the first reference of a singular property such as "actor".
// ok is false when the property is absent or holds no usable entry.
func MapOne[T any](n Node, key string, onObject func(Node) (T, error), onID func(string) (T, error)) (val T, ok bool, err error) {
	refs, refErr := Refs(n, key)
	if len(refs) == 0 {
		return val, false, refErr
	}
	val, err = Match(refs[0], onObject, onID)
	if err != nil {
		return val, false, err
	}
	return val, true, nil
}

// MapAll maps every reference of a plural property such as "to" or "attachment".
// A failing element is dropped; its error is joined into the returned error,
// which callers may ignore when partial results are acceptable.
func MapAll[T any](n Node, key string, onObject func(Node) (T, error), onID func(string) (T, error)) ([]T, error) {
	refs, refErr := Refs(n, key)
	errs := []error{refErr}
	out := make([]T, 0, len(refs))
	for _, r := range refs {
		v, err := Match(r, onObject, onID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
	return out, errors.Join(errs...)
}
