package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains(nil, "a"))
	assert.True(t, Contains([]int{1, 2, 3}, 3))
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob", "carol"}, UniqueIDs("alice", " bob ", "", "alice", "carol", "bob"))
	assert.Empty(t, UniqueIDs())
	assert.Empty(t, UniqueIDs(" ", ""))
}

func TestWithout(t *testing.T) {
	assert.Equal(t, []string{"b", "c"}, Without([]string{"a", "b", "a", "c"}, "a"))
	assert.Empty(t, Without([]string{"a"}, "a"))
}
