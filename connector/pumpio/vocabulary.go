package pumpio

const (
	ContentType      = "application/json"
	PublicCollection = "http://activityschema.org/collection/public"
)

const (
	verbProperty       = "verb"
	objectTypeProperty = "objectType"
	actorProperty      = "actor"
	objectProperty     = "object"
	authorProperty     = "author"
	inReplyToProperty  = "inReplyTo"
	toProperty         = "to"
	ccProperty         = "cc"
	itemsProperty      = "items"
	attachmentsProp    = "attachments"
)

// Verbs
const (
	PostVerb          = "post"
	UpdateVerb        = "update"
	DeleteVerb        = "delete"
	FollowVerb        = "follow"
	StopFollowingVerb = "stop-following"
	FavoriteVerb      = "favorite"
	LikeVerb          = "like"
	UnfavoriteVerb    = "unfavorite"
	UnlikeVerb        = "unlike"
	ShareVerb         = "share"
	UnshareVerb       = "unshare"
)

// Object types
const (
	PersonType      = "person"
	ServiceType     = "service"
	ApplicationType = "application"
	GroupType       = "group"
	NoteType        = "note"
	CommentType     = "comment"
	ArticleType     = "article"
	ImageType       = "image"
	VideoType       = "video"
	AudioType       = "audio"
	FileType        = "file"
	ActivityType    = "activity"
	CollectionType  = "collection"
)

// host-meta link relations used for client registration
const (
	registrationRel = "registration_endpoint"
	authorizeRel    = "http://apinamespace.org/oauth/authorize"
)
