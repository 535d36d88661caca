package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeq(t *testing.T) {
	prev := Seq()
	for i := 0; i < 100; i++ {
		next := Seq()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
