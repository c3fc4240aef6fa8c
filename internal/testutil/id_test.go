package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator(t *testing.T) {
	g := NewFixedIDGenerator("run-42")
	assert.Equal(t, "run-42", g.Generate())
	assert.Equal(t, "run-42", g.Generate())
}

func TestFixedIDGeneratorDefault(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedIDGenerator("").Generate())
}
