package embed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMarkdown_SplitsAtSecondLevelHeadings(t *testing.T) {
	doc := "# Calculus\n\nIntro paragraph.\n\n" +
		"## Limits\n\nA limit describes behaviour near a point.\n\n- one sided\n- two sided\n\n" +
		"---\n\n" +
		"## Derivatives\n\nRate of change.\n"

	got := ChunkMarkdown(doc, "Lecture1")

	require.Len(t, got, 3)
	assert.Equal(t, "Lecture1", got[0].Title)
	assert.Contains(t, got[0].Content, "Intro paragraph.")

	assert.Equal(t, "Limits", got[1].Title)
	assert.Contains(t, got[1].Content, "A limit describes behaviour near a point.")
	assert.Contains(t, got[1].Content, "one sided")
	assert.Contains(t, got[1].Content, "two sided")

	assert.Equal(t, "Derivatives", got[2].Title)
	assert.Contains(t, got[2].Content, "Rate of change.")
	assert.NotContains(t, got[2].Content, "Limits")
}

func TestChunkMarkdown_SplitsLongSections(t *testing.T) {
	words := make([]string, 600)
	for i := range words {
		words[i] = "word"
	}
	got := ChunkMarkdown("## Long\n\n"+strings.Join(words, " ")+"\n", "doc")

	require.Len(t, got, 3)
	assert.Len(t, strings.Fields(got[0].Content), maxWordsPerSection)
	assert.Len(t, strings.Fields(got[1].Content), maxWordsPerSection)
	assert.Len(t, strings.Fields(got[2].Content), 601-2*maxWordsPerSection)
	for _, s := range got {
		assert.Equal(t, "Long", s.Title)
	}
}

func TestChunkMarkdown_Empty(t *testing.T) {
	assert.Empty(t, ChunkMarkdown("", "doc"))
	assert.Empty(t, ChunkMarkdown("\n\n***\n", "doc"))
}
