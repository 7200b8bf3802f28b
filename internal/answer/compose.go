package answer

import (
	"fmt"
	"sort"
	"strings"

	"studymate/internal/domain"
)

type fileGroup struct {
	name string
	urls []string
}

type courseGroup struct {
	name   string
	files  []*fileGroup
	byName map[string]*fileGroup
}

// formatLocations lists where the chunks live, one line per (course, file)
// pair. Courses and files keep the order of their first appearance; URLs
// inside a file are sorted. Chunks not attached to a file of a course are
// left out.
func formatLocations(chunks []domain.Chunk) string {
	var courses []*courseGroup
	byCourse := make(map[string]*courseGroup)

	for _, c := range chunks {
		if c.FileName == "" || c.CourseName == "" {
			continue
		}
		cg, ok := byCourse[c.CourseName]
		if !ok {
			cg = &courseGroup{name: c.CourseName, byName: make(map[string]*fileGroup)}
			byCourse[c.CourseName] = cg
			courses = append(courses, cg)
		}
		fg, ok := cg.byName[c.FileName]
		if !ok {
			fg = &fileGroup{name: c.FileName}
			cg.byName[c.FileName] = fg
			cg.files = append(cg.files, fg)
		}
		fg.urls = append(fg.urls, c.URL)
	}

	var sb strings.Builder
	sb.WriteString(MsgLocationHeader)
	for _, cg := range courses {
		for _, fg := range cg.files {
			sort.Strings(fg.urls)
			fmt.Fprintf(&sb, "- Course: %s, File: %s: %s\n", cg.name, fg.name, strings.Join(fg.urls, ", "))
		}
	}
	return sb.String()
}

// formatLinks renders one markdown bullet per link.
func formatLinks(links []domain.ExternalLink) string {
	lines := make([]string, 0, len(links))
	for _, l := range links {
		lines = append(lines, "- ["+l.Site+"]("+l.URL+")")
	}
	return strings.Join(lines, "\n")
}
