package pumpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tkrehbiel/fedlace/connector/data"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, KindActivity, Classify(data.Node{"verb": "post"}))
	assert.Equal(t, KindActivity, Classify(data.Node{"verb": "share", "objectType": "activity"}))
	assert.Equal(t, KindPerson, Classify(data.Node{"objectType": "Person"}))
	assert.Equal(t, KindNote, Classify(data.Node{"objectType": "comment"}))
	assert.Equal(t, KindImage, Classify(data.Node{"objectType": "image"}))
	assert.Equal(t, KindCollection, Classify(data.Node{"objectType": "collection"}))
	assert.Equal(t, KindPerson, Classify(data.Node{"preferredUsername": "evan"}))
	assert.Equal(t, KindNote, Classify(data.Node{"content": "untyped"}))
	assert.Equal(t, KindUnknown, Classify(data.Node{"id": "x"}))
	assert.True(t, KindVideo.IsNote())
	assert.False(t, KindPerson.IsNote())
}

func TestClassifyID(t *testing.T) {
	cases := map[string]Kind{
		"acct:evan@pump.example":                       KindPerson,
		"https://pump.example/api/user/evan":           KindPerson,
		"https://pump.example/api/user/evan/profile":   KindPerson,
		"https://pump.example/api/note/abc":            KindNote,
		"https://pump.example/api/comment/abc":         KindNote,
		"https://pump.example/api/activity/abc":        KindActivity,
		"https://pump.example/api/user/evan/followers": KindCollection,
		"https://pump.example/api/user/evan/feed":      KindCollection,
		"https://pump.example/evan":                    KindUnknown,
	}
	for id, expected := range cases {
		assert.Equal(t, expected, ClassifyID(id), id)
	}
}
