package activitypub

// ActivityPub and ActivityStreams vocabulary

const (
	Context          = "https://www.w3.org/ns/activitystreams"
	ContentType      = "application/activity+json"
	Accept           = `application/activity+json, application/ld+json; profile="https://www.w3.org/ns/activitystreams"`
	PublicCollection = "https://www.w3.org/ns/activitystreams#Public"
)

// Properties
const (
	TypeProperty         = "type"
	ActorProperty        = "actor"
	ObjectProperty       = "object"
	ToProperty           = "to"
	CCProperty           = "cc"
	AttributedToProperty = "attributedTo"
	InReplyToProperty    = "inReplyTo"
	AttachmentProperty   = "attachment"
	RepliesProperty      = "replies"
	OrderedItemsProperty = "orderedItems"
	ItemsProperty        = "items"
)

// Actor types
const (
	PersonType       = "Person"
	ServiceType      = "Service"
	OrganizationType = "Organization"
	GroupType        = "Group"
	ApplicationType  = "Application"
)

// Object types
const (
	NoteType                  = "Note"
	ArticleType               = "Article"
	QuestionType              = "Question"
	PageType                  = "Page"
	EventType                 = "Event"
	ImageType                 = "Image"
	VideoType                 = "Video"
	AudioType                 = "Audio"
	DocumentType              = "Document"
	TombstoneType             = "Tombstone"
	CollectionType            = "Collection"
	OrderedCollectionType     = "OrderedCollection"
	CollectionPageType        = "CollectionPage"
	OrderedCollectionPageType = "OrderedCollectionPage"
	RelationshipType          = "Relationship"
)

// Activity types
const (
	CreateType   = "Create"
	UpdateType   = "Update"
	DeleteType   = "Delete"
	FollowType   = "Follow"
	UndoType     = "Undo"
	LikeType     = "Like"
	AnnounceType = "Announce"
	AcceptType   = "Accept"
	RejectType   = "Reject"
	AddType      = "Add"
	RemoveType   = "Remove"
	BlockType    = "Block"
	FlagType     = "Flag"
)
