package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGet(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	id, err := store.Save(Record{
		UserID:     "u-1",
		ResponseID: "r-1",
		Rating:     4,
		Feedback:   "clear answer",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.FeedbackID)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "r-1", got.ResponseID)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, "clear answer", got.Feedback)
	assert.False(t, got.Timestamp.IsZero())
}

func TestGetMissing(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get("nope")
	assert.Error(t, err)
}
