// Package domain holds the catalog entities shared by the store, the
// retrieval pipeline and the maintenance jobs.
package domain

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Course is a top-level grouping of downloaded files.
type Course struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DownloadedFile is a logical source document owned by exactly one course.
type DownloadedFile struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CourseID    int64     `json:"course_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tag is a normalized keyword used for coarse recall.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Chunk is the smallest retrievable unit of course material.
//
// FileName and CourseName are read-model fields filled by the store when the
// chunk is attached to a file; they are empty for orphan chunks.
type Chunk struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	FileID     *int64    `json:"file_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Tags       []Tag     `json:"tags,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	CourseName string    `json:"course_name,omitempty"`
}

// ContentHash identifies the content an embedding was computed from.
func (c Chunk) ContentHash() string {
	return HashContent(c.Content)
}

// HashContent returns the hex sha256 of content.
func HashContent(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}

// Embedding is the sidecar vector of a chunk.
type Embedding struct {
	ChunkID     int64
	Vector      []float64
	ContentHash string
}

// ExternalLink points to a search on an external knowledge source.
type ExternalLink struct {
	Site       string
	URL        string
	DisplayURL string
}
