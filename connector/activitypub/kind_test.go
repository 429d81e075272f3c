package activitypub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tkrehbiel/fedlace/connector/data"
)

func TestClassify_ExplicitTag(t *testing.T) {
	cases := map[string]Kind{
		"Person":            KindPerson,
		"service":           KindPerson,
		"Application":       KindApplication,
		"Create":            KindActivity,
		"undo":              KindActivity,
		"Note":              KindNote,
		"Article":           KindNote,
		"Image":             KindImage,
		"Video":             KindVideo,
		"OrderedCollection": KindOrderedCollection,
		"CollectionPage":    KindCollection,
		"Relationship":      KindRelationship,
	}
	for tag, expected := range cases {
		assert.Equal(t, expected, Classify(data.Node{"type": tag}), tag)
	}
}

func TestClassify_Heuristics(t *testing.T) {
	assert.Equal(t, KindActivity, Classify(data.Node{"id": "x", "object": "y"}))
	assert.Equal(t, KindPerson, Classify(data.Node{"preferredUsername": "bob"}))
	assert.Equal(t, KindPerson, Classify(data.Node{"inbox": "i", "outbox": "o"}))
	assert.Equal(t, KindOrderedCollection, Classify(data.Node{"orderedItems": []interface{}{}}))
	assert.Equal(t, KindCollection, Classify(data.Node{"totalItems": 3.0}))
	assert.Equal(t, KindNote, Classify(data.Node{"content": "hi"}))
	assert.Equal(t, KindUnknown, Classify(data.Node{"id": "x"}))
	assert.Equal(t, KindUnknown, Classify(nil))
}

func TestClassify_UnknownTagWithObjectIsNotActivity(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify(data.Node{"type": "EmojiReact", "object": "y"}))
}

func TestKind_CompatibleWith(t *testing.T) {
	assert.True(t, KindVideo.CompatibleWith(KindNote))
	assert.True(t, KindImage.CompatibleWith(KindNote))
	assert.True(t, KindApplication.CompatibleWith(KindPerson))
	assert.False(t, KindNote.CompatibleWith(KindPerson))
}

func TestClassifyID(t *testing.T) {
	cases := map[string]Kind{
		"https://example.com/users/bob":                      KindPerson,
		"https://example.com/@bob":                           KindPerson,
		"https://example.com/activities/123":                 KindActivity,
		"https://example.com/users/bob/statuses/1/activity":  KindActivity,
		"https://example.com/users/bob/statuses/1":           KindNote,
		"https://example.com/objects/9f1a":                   KindNote,
		"https://example.com/users/bob/followers":            KindCollection,
		"https://example.com/users/bob/outbox?page=true":     KindCollection,
		"https://example.com/something/else/entirely/x.json": KindUnknown,
	}
	for id, expected := range cases {
		assert.Equal(t, expected, ClassifyID(id), id)
	}
}
