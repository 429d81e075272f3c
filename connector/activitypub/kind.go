package activitypub

import (
	"regexp"
	"strings"

	"github.com/tkrehbiel/fedlace/connector/data"
)

// Kind is the semantic kind of a json node.
type Kind int

const (
	KindUnknown Kind = iota
	KindPerson
	KindApplication
	KindActivity
	KindNote
	KindImage
	KindVideo
	KindCollection
	KindOrderedCollection
	KindRelationship
)

var kindNames = map[Kind]string{
	KindUnknown:           "Unknown",
	KindPerson:            "Person",
	KindApplication:       "Application",
	KindActivity:          "Activity",
	KindNote:              "Note",
	KindImage:             "Image",
	KindVideo:             "Video",
	KindCollection:        "Collection",
	KindOrderedCollection: "OrderedCollection",
	KindRelationship:      "Relationship",
}

func (k Kind) String() string {
	return kindNames[k]
}

// CompatibleWith is true when a node of kind k can be handled as other:
// media objects are notes, applications are actors.
func (k Kind) CompatibleWith(other Kind) bool {
	if k == other {
		return true
	}
	switch other {
	case KindNote:
		return k == KindImage || k == KindVideo
	case KindPerson:
		return k == KindApplication
	case KindCollection:
		return k == KindOrderedCollection
	}
	return false
}

// kindRule pairs a kind with the type tags that name it and the structural
// test used when no tag matched. Rules are tried in order, first match wins.
type kindRule struct {
	kind  Kind
	tags  []string
	looks func(n data.Node) bool
}

var activityTags = []string{
	CreateType, UpdateType, DeleteType, FollowType, UndoType, LikeType, AnnounceType,
	AcceptType, RejectType, AddType, RemoveType, BlockType, FlagType,
}

var kindRules = []kindRule{
	{KindActivity, activityTags, func(n data.Node) bool {
		return n.Has(ObjectProperty) && n.String(TypeProperty) == ""
	}},
	{KindPerson, []string{PersonType, ServiceType, OrganizationType, GroupType}, func(n data.Node) bool {
		return n.Has("preferredUsername") || (n.Has("inbox") && n.Has("outbox"))
	}},
	{KindApplication, []string{ApplicationType}, nil},
	{KindOrderedCollection, []string{OrderedCollectionType, OrderedCollectionPageType}, func(n data.Node) bool {
		return n.Has(OrderedItemsProperty)
	}},
	{KindCollection, []string{CollectionType, CollectionPageType}, func(n data.Node) bool {
		return n.Has(ItemsProperty) || n.Has("totalItems")
	}},
	{KindNote, []string{NoteType, ArticleType, QuestionType, PageType, EventType}, func(n data.Node) bool {
		return n.Has("content") || n.Has(AttributedToProperty)
	}},
	{KindImage, []string{ImageType}, nil},
	{KindVideo, []string{VideoType, AudioType, DocumentType}, nil},
	{KindRelationship, []string{RelationshipType}, func(n data.Node) bool {
		return n.Has("relationship") && n.Has("subject")
	}},
}

// Classify decides the kind of a node: an explicit type tag first, then
// structural heuristics. KindUnknown means the node should be skipped.
func Classify(n data.Node) Kind {
	if n == nil {
		return KindUnknown
	}
	if tag := n.String(TypeProperty); tag != "" {
		for _, rule := range kindRules {
			for _, t := range rule.tags {
				if strings.EqualFold(t, tag) {
					return rule.kind
				}
			}
		}
	}
	for _, rule := range kindRules {
		if rule.looks != nil && rule.looks(n) {
			return rule.kind
		}
	}
	return KindUnknown
}

// idRule classifies a bare id by its path.
type idRule struct {
	kind    Kind
	pattern *regexp.Regexp
}

var idRules = []idRule{
	{KindActivity, regexp.MustCompile(`/activit(y|ies)(/|$)`)},
	{KindNote, regexp.MustCompile(`/(statuses|notes|objects|posts|notice|comments?)/`)},
	{KindCollection, regexp.MustCompile(`/(followers|following|outbox|inbox|liked|collections)(/|\?|$)`)},
	{KindPerson, regexp.MustCompile(`(/(users|accounts|actors?|u|profile)/[^/]+/?$)|(/@[^/]+/?$)|(^acct:)`)},
}

// ClassifyID guesses the kind of an object known only by its id.
func ClassifyID(id string) Kind {
	s := strings.ToLower(strings.TrimSpace(id))
	for _, rule := range idRules {
		if rule.pattern.MatchString(s) {
			return rule.kind
		}
	}
	return KindUnknown
}
