package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIDsSortInCreationOrder(t *testing.T) {
	at := time.Date(2022, 1, 3, 9, 30, 0, 0, time.UTC)

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewRunIDAt(at)
	}

	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, ids[0], 26)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestTime(t *testing.T) {
	at := time.Date(2022, 1, 3, 9, 30, 0, 0, time.UTC)

	got, err := Time(NewRunIDAt(at))
	require.NoError(t, err)
	assert.True(t, got.Equal(at))

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
