package activity

import "strings"

// Position marks a place in a paginated timeline: either a literal cursor
// token (a since/before id) or the uri of a page. The zero value is EMPTY.
type Position struct {
	value string
	isURI bool
}

var EmptyPosition = Position{}

func TokenPosition(token string) Position {
	return Position{value: strings.TrimSpace(token)}
}

func URIPosition(uri string) Position {
	uri = strings.TrimSpace(uri)
	return Position{value: uri, isURI: uri != ""}
}

func (p Position) IsEmpty() bool {
	return p.value == ""
}

func (p Position) IsURI() bool {
	return p.isURI
}

func (p Position) String() string {
	return p.value
}
