package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewApproved struct {
	ReviewID string `json:"review_id"`
	AuthorID string `json:"author_id"`
}

func TestCloudEvent_RoundTrip(t *testing.T) {
	ce, err := NewCloudEvent("service-content", "review.approved", reviewApproved{ReviewID: "r1", AuthorID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, "1.0", ce.SpecVersion)
	assert.NotEmpty(t, ce.ID)

	payload := []byte(`{"specversion":"1.0","id":"evt-1","source":"service-content","type":"review.approved","time":"2026-01-05T10:00:00Z","datacontenttype":"application/json","data":{"review_id":"r1","author_id":"a1"}}`)
	parsed, err := ParseCloudEvent(payload)
	require.NoError(t, err)

	var data reviewApproved
	require.NoError(t, parsed.ParseData(&data))
	assert.Equal(t, "a1", data.AuthorID)
}

func TestParseCloudEvent_RejectsIncomplete(t *testing.T) {
	_, err := ParseCloudEvent([]byte(`{"specversion":"1.0","source":"x"}`))
	assert.Error(t, err)

	_, err = ParseCloudEvent([]byte(`not json`))
	assert.Error(t, err)
}
