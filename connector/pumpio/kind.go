package pumpio

import (
	"regexp"
	"strings"

	"github.com/tkrehbiel/fedlace/connector/data"
)

// Kind is what a pump.io json node stands for.
type Kind int

const (
	KindUnknown Kind = iota
	KindPerson
	KindActivity
	KindNote
	KindImage
	KindVideo
	KindCollection
)

var kindNames = map[Kind]string{
	KindUnknown:    "Unknown",
	KindPerson:     "Person",
	KindActivity:   "Activity",
	KindNote:       "Note",
	KindImage:      "Image",
	KindVideo:      "Video",
	KindCollection: "Collection",
}

func (k Kind) String() string {
	return kindNames[k]
}

// IsNote includes media objects, which carry a displayName and content like notes.
func (k Kind) IsNote() bool {
	return k == KindNote || k == KindImage || k == KindVideo
}

var objectTypes = map[string]Kind{
	PersonType:      KindPerson,
	ServiceType:     KindPerson,
	ApplicationType: KindPerson,
	GroupType:       KindPerson,
	NoteType:        KindNote,
	CommentType:     KindNote,
	ArticleType:     KindNote,
	ImageType:       KindImage,
	VideoType:       KindVideo,
	AudioType:       KindVideo,
	FileType:        KindNote,
	ActivityType:    KindActivity,
	CollectionType:  KindCollection,
}

// Classify reads the verb first: pump.io activities often carry no
// objectType at all. Untyped objects fall back to structural hints.
func Classify(n data.Node) Kind {
	if n == nil {
		return KindUnknown
	}
	if n.String(verbProperty) != "" {
		return KindActivity
	}
	if k, ok := objectTypes[strings.ToLower(n.String(objectTypeProperty))]; ok {
		return k
	}
	switch {
	case n.Has("preferredUsername"):
		return KindPerson
	case n.Has(itemsProperty):
		return KindCollection
	case n.Has("content") || n.Has(authorProperty):
		return KindNote
	}
	return KindUnknown
}

var idRules = []struct {
	kind    Kind
	pattern *regexp.Regexp
}{
	{KindActivity, regexp.MustCompile(`/api/activity/`)},
	{KindNote, regexp.MustCompile(`/api/(note|comment|image|video|audio|file|article)/`)},
	{KindCollection, regexp.MustCompile(`(/api/collection/)|(/(followers|following|favorites|lists/person|feed|inbox)(/|\?|$))`)},
	{KindPerson, regexp.MustCompile(`(^acct:)|(/api/user/[^/]+(/profile)?/?$)`)},
}

func ClassifyID(id string) Kind {
	s := strings.ToLower(strings.TrimSpace(id))
	for _, rule := range idRules {
		if rule.pattern.MatchString(s) {
			return rule.kind
		}
	}
	return KindUnknown
}
