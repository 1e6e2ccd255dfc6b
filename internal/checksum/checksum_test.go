package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	assert.Equal(t, empty, Sum(nil))
	assert.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
}

func TestPartsBoundaries(t *testing.T) {
	assert.NotEqual(t, Parts("ab", "c"), Parts("a", "bc"), "boundary shift")
	assert.NotEqual(t, Parts("x", ""), Parts("x"), "trailing empty part")
	assert.Equal(t, Parts("front", "body"), Parts("front", "body"))
}
