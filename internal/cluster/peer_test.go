package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinLiveIDPicksLowest(t *testing.T) {
	id, ok := MinLiveID([]int{3, 1, 2})
	assert.True(t, ok)
	assert.Equal(t, 1, id)
}

func TestMinLiveIDEmptyIsNotOK(t *testing.T) {
	_, ok := MinLiveID(nil)
	assert.False(t, ok)
}

func TestSortedIDsDoesNotMutateInput(t *testing.T) {
	ids := []int{3, 1, 2}
	sorted := SortedIDs(ids)
	assert.Equal(t, []int{1, 2, 3}, sorted)
	assert.Equal(t, []int{3, 1, 2}, ids)
}
