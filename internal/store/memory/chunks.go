package memory

import (
	"context"
	"sort"
	"strings"

	"studymate/internal/domain"
)

// CreateChunk stores a chunk. Content must be non-empty and the owning file,
// when set, must exist.
func (s *Store) CreateChunk(_ context.Context, c domain.Chunk) (domain.Chunk, error) {
	if strings.TrimSpace(c.Content) == "" {
		return domain.Chunk{}, domain.NewValidationError("content", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.FileID != nil {
		if _, ok := s.files[*c.FileID]; !ok {
			return domain.Chunk{}, domain.NewNotFoundError("file", *c.FileID)
		}
	}
	c.ID = s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	c.Tags = nil
	c.FileName, c.CourseName = "", ""
	s.chunks[c.ID] = c
	return s.viewLocked(c), nil
}

// GetChunk returns a chunk with its tags and location names.
func (s *Store) GetChunk(_ context.Context, id int64) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, domain.NewNotFoundError("chunk", id)
	}
	return s.viewLocked(c), nil
}

// DeleteChunk removes a chunk, its tag associations and its embedding. Tags
// themselves are kept.
func (s *Store) DeleteChunk(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[id]; !ok {
		return domain.NewNotFoundError("chunk", id)
	}
	s.deleteChunkLocked(id)
	return nil
}

func (s *Store) deleteChunkLocked(id int64) {
	delete(s.chunkTags, id)
	delete(s.embeddings, id)
	delete(s.chunks, id)
}

// ListAllChunks returns every chunk ordered by id.
func (s *Store) ListAllChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(domain.Chunk) bool { return true }), nil
}

// FindChunksByTags returns chunks associated with at least one of names,
// compared case-insensitively. Each chunk appears once.
func (s *Store) FindChunksByTags(_ context.Context, names []string) ([]domain.Chunk, error) {
	if len(names) == 0 {
		return []domain.Chunk{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[int64]struct{})
	for _, name := range names {
		if id, ok := s.tagByName[strings.ToLower(name)]; ok {
			wanted[id] = struct{}{}
		}
	}
	return s.sortedLocked(func(c domain.Chunk) bool {
		for tagID := range s.chunkTags[c.ID] {
			if _, ok := wanted[tagID]; ok {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) sortedLocked(keep func(domain.Chunk) bool) []domain.Chunk {
	out := make([]domain.Chunk, 0)
	for _, c := range s.chunks {
		if keep(c) {
			out = append(out, s.viewLocked(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) viewLocked(c domain.Chunk) domain.Chunk {
	c.Tags = nil
	for tagID := range s.chunkTags[c.ID] {
		c.Tags = append(c.Tags, s.tags[tagID])
	}
	sort.Slice(c.Tags, func(i, j int) bool { return c.Tags[i].Name < c.Tags[j].Name })
	if c.FileID != nil {
		if f, ok := s.files[*c.FileID]; ok {
			c.FileName = f.Name
			if course, ok := s.courses[f.CourseID]; ok {
				c.CourseName = course.Name
			}
		}
	}
	return c
}

// UpdateChunk replaces the title, url and content of a stored chunk. The
// stored embedding, if any, becomes stale when the content changes.
func (s *Store) UpdateChunk(_ context.Context, c domain.Chunk) (domain.Chunk, error) {
	if strings.TrimSpace(c.Content) == "" {
		return domain.Chunk{}, domain.NewValidationError("content", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.chunks[c.ID]
	if !ok {
		return domain.Chunk{}, domain.NewNotFoundError("chunk", c.ID)
	}
	stored.Title = c.Title
	stored.URL = c.URL
	stored.Content = c.Content
	s.chunks[c.ID] = stored
	return s.viewLocked(stored), nil
}
