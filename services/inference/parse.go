package inference

import (
	"regexp"
	"strings"
)

// nonLetter matches every rune that is neither a letter nor a separator.
// \s alone is ASCII-only, so Unicode spaces are listed through \p{Z}.
var nonLetter = regexp.MustCompile(`[^\p{L}\p{Z}\s]`)

// ParseBinaryDecision interprets a yes/no model answer. Models are asked to
// reply with a bare 1 or 0 but often add prose, so any answer containing the
// character '1' counts as yes.
func ParseBinaryDecision(raw string) bool {
	return strings.Contains(raw, "1")
}

// ParseTags turns a free-form keyword answer into tag tokens: non-letters are
// stripped, the rest is lower-cased and split on whitespace. Order follows the
// model output and duplicates are kept.
func ParseTags(raw string) []string {
	cleaned := strings.ToLower(nonLetter.ReplaceAllString(raw, ""))
	fields := strings.Fields(cleaned)
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			tags = append(tags, f)
		}
	}
	return tags
}
