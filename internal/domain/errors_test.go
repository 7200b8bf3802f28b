package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	nf := NewNotFoundError("chunk", int64(7))
	wrapped := fmt.Errorf("delete: %w", nf)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, "chunk 7 not found", nf.Error())

	ve := NewValidationError("query", "longer than 254 characters")
	assert.True(t, IsValidation(fmt.Errorf("answer: %w", ve)))
	assert.False(t, IsNotFound(ve))
	assert.Equal(t, "invalid query: longer than 254 characters", ve.Error())
}

func TestChunkContentHash(t *testing.T) {
	a := Chunk{Content: "derivative of x^2"}
	b := Chunk{Content: "derivative of x^2"}
	c := Chunk{Content: "integral of x^2"}

	assert.Equal(t, a.ContentHash(), b.ContentHash())
	assert.NotEqual(t, a.ContentHash(), c.ContentHash())
	assert.Len(t, a.ContentHash(), 64)
}
