package announce

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haidar-88/Capstone/identity"
)

func TestDedupCacheMarksAndReportsSeen(t *testing.T) {
	d := NewDedupCache(10)
	a := identity.NodeID(1)

	assert.False(t, d.Seen(a, 7))
	d.Mark(a, 7)
	assert.True(t, d.Seen(a, 7))
	assert.False(t, d.Seen(a, 8))
}

func TestDedupCacheEvictsOldestWhenFull(t *testing.T) {
	d := NewDedupCache(2)
	a := identity.NodeID(1)

	d.Mark(a, 1)
	d.Mark(a, 2)
	d.Mark(a, 3)

	assert.Equal(t, 2, d.Len())
	assert.False(t, d.Seen(a, 1))
	assert.True(t, d.Seen(a, 2))
	assert.True(t, d.Seen(a, 3))
}

func TestDedupCacheMarkIsIdempotent(t *testing.T) {
	d := NewDedupCache(2)
	a := identity.NodeID(1)

	d.Mark(a, 1)
	d.Mark(a, 1)

	assert.Equal(t, 1, d.Len())
}
