package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tkrehbiel/fedlace/connector/data"
)

func TestRoutine_Budget(t *testing.T) {
	assert.Equal(t, DownloadFile.Budget(), GetActor.Budget())
	assert.NotEqual(t, HomeTimeline.Budget(), UpdateNote.Budget())
}

func TestRoutine_ParseRoundTrip(t *testing.T) {
	for r := range routineNames {
		parsed, ok := ParseRoutine(r.String())
		assert.True(t, ok)
		assert.Equal(t, r, parsed)
	}
	_, ok := ParseRoutine("nope")
	assert.False(t, ok)
}

func TestRequest_Method(t *testing.T) {
	r := NewRequest(HomeTimeline, "https://example.com/inbox")
	assert.Equal(t, http.MethodGet, r.Method())
	assert.Equal(t, http.MethodPost, r.WithPost(data.Node{"type": "Like"}).Method())
	assert.Equal(t, http.MethodPost, r.WithMedia(&MediaPart{Data: []byte{1}}).Method())
}

func TestRequest_WithHeaderCopies(t *testing.T) {
	r := NewRequest(GetNote, "u").WithHeader("Accept", "a")
	r2 := r.WithHeader("Accept", "b")
	assert.Equal(t, "a", r.Headers.Get("Accept"))
	assert.Equal(t, "b", r2.Headers.Get("Accept"))
}
