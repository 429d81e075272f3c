package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// tempOIDPrefix marks ids given to notes that the server has not seen yet.
const tempOIDPrefix = "tmp:"

// NewTempOID returns an id for a locally created note.
func NewTempOID() string {
	return tempOIDPrefix + uuid.NewString()
}

func IsTempOID(oid string) bool {
	return strings.HasPrefix(oid, tempOIDPrefix)
}

// IsRealOID is true for an id that the remote server assigned.
func IsRealOID(oid string) bool {
	return oid != "" && !IsTempOID(oid)
}

// Attachment is a media item of a note. URI is set once the media is
// downloadable from a remote server; LocalFile names media still to be uploaded.
type Attachment struct {
	URI       string
	MediaType string
	Name      string
	LocalFile string
}

// IsRemote is true when the attachment can be referenced without uploading.
func (a Attachment) IsRemote() bool {
	return strings.HasPrefix(a.URI, "http://") || strings.HasPrefix(a.URI, "https://")
}

type Note struct {
	OID             string
	Name            string
	Summary         string // content warning
	Content         string
	ContentType     string // media type of Content, e.g. text/html
	Sensitive       bool
	URL             string
	ConversationOID string
	Via             string // posting application
	Published       time.Time
	Updated         time.Time
	InReplyTo       *Activity
	Replies         []Activity
	Attachments     []Attachment
	Audience        Audience

	LikesCount   int64
	RepliesCount int64
	ReblogsCount int64
}

func NewNote(oid string) Note {
	return Note{OID: strings.TrimSpace(oid)}
}

func (n Note) IsEmpty() bool {
	return n.OID == ""
}

// HasBody is false for a note with nothing to show.
func (n Note) HasBody() bool {
	return strings.TrimSpace(n.Content) != "" || len(n.Attachments) > 0
}

// HasText reports any of the text fields a server may silently drop.
func (n Note) HasText() bool {
	return n.Content != "" || n.Name != "" || n.Summary != ""
}

// InReplyToNote is the note this one replies to, or an empty note.
func (n Note) InReplyToNote() Note {
	if n.InReplyTo == nil {
		return Note{}
	}
	return n.InReplyTo.Note()
}
