package api

import "github.com/tkrehbiel/fedlace/connector/activity"

// Direction of a timeline request relative to what is already known.
type Direction int

const (
	Younger Direction = iota
	Older
)

func (d Direction) String() string {
	if d == Older {
		return "older"
	}
	return "younger"
}

// Page is one page of a timeline, items ordered oldest to newest.
type Page struct {
	Items []activity.Activity
	Prev  activity.Position // fetch younger items from here
	Next  activity.Position // fetch older items from here
}

func (p Page) IsEmpty() bool {
	return len(p.Items) == 0
}
