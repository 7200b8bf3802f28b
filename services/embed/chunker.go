package embed

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is a piece of a markdown document ready to become a chunk.
type Section struct {
	Title   string
	Content string
}

// Target maximum words per section.
const maxWordsPerSection = 256

// Markdown heading level to split sections (Level 2 => ##)
const headingLevelToSplit = 2

// ChunkMarkdown splits markdown at level-2 headings and further splits
// sections longer than maxWordsPerSection words. The heading text becomes
// the section title; content before the first such heading gets the
// document title fallback.
func ChunkMarkdown(content, fallbackTitle string) []Section {
	mdParser := goldmark.New()
	reader := text.NewReader([]byte(content))
	docAST := mdParser.Parser().Parse(reader)
	src := reader.Source()

	var sections []Section
	var current bytes.Buffer
	title := fallbackTitle

	for node := docAST.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok && heading.Level == headingLevelToSplit {
			if current.Len() > 0 {
				sections = append(sections, splitSectionByWords(current.String(), title)...)
			}
			current.Reset()
			title = string(heading.Text(src))
		}

		start, stop, ok := blockRange(node)
		if !ok {
			continue
		}
		current.Write(src[start:stop])
		current.WriteString("\n\n")
	}

	if current.Len() > 0 {
		sections = append(sections, splitSectionByWords(current.String(), title)...)
	}
	return sections
}

// blockRange returns the source span of a block. Container blocks such as
// lists and block quotes carry no lines themselves, so their span is taken
// from their descendants.
func blockRange(node ast.Node) (int, int, bool) {
	if lines := node.Lines(); lines != nil && lines.Len() > 0 {
		return lines.At(0).Start, lines.At(lines.Len() - 1).Stop, true
	}
	start, stop, found := 0, 0, false
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if child.Type() != ast.TypeBlock {
			continue
		}
		s, e, ok := blockRange(child)
		if !ok {
			continue
		}
		if !found || s < start {
			start = s
		}
		if !found || e > stop {
			stop = e
		}
		found = true
	}
	return start, stop, found
}

// splitSectionByWords splits a section if it exceeds maxWordsPerSection.
func splitSectionByWords(section, title string) []Section {
	words := strings.Fields(section)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= maxWordsPerSection {
		return []Section{{Title: title, Content: strings.TrimSpace(section)}}
	}

	var out []Section
	for start := 0; start < len(words); start += maxWordsPerSection {
		end := min(start+maxWordsPerSection, len(words))
		out = append(out, Section{Title: title, Content: strings.Join(words[start:end], " ")})
	}
	return out
}
