package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	assert := assert.New(t)

	s := Of("b", "a")
	s.Add("c", "a")
	assert.Equal(3, s.Len())
	assert.True(s.Contains("c"))

	other := Of("d")
	s.AddFrom(other)
	assert.Equal([]string{"a", "b", "c", "d"}, s.Sorted(func(a, b string) bool { return a < b }))

	assert.True(s.Remove("d"))
	assert.False(s.Remove("d"))
	assert.False(s.Contains("d"))
}
