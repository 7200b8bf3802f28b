package memory

import (
	"context"
	"strings"

	"studymate/internal/domain"
)

// GetOrCreateTag returns the tag named name, creating it when absent. The
// lookup and insert happen under one lock, so concurrent callers with the
// same name always get the same tag.
func (s *Store) GetOrCreateTag(_ context.Context, name string) (domain.Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return domain.Tag{}, domain.NewValidationError("tag", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.tagByName[name]; ok {
		return s.tags[id], nil
	}
	t := domain.Tag{ID: s.id(), Name: name}
	s.tags[t.ID] = t
	s.tagByName[name] = t.ID
	return t, nil
}

// AddChunkTags unions tagIDs into the chunk's tag set.
func (s *Store) AddChunkTags(_ context.Context, chunkID int64, tagIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[chunkID]; !ok {
		return domain.NewNotFoundError("chunk", chunkID)
	}
	set, ok := s.chunkTags[chunkID]
	if !ok {
		set = make(map[int64]struct{})
		s.chunkTags[chunkID] = set
	}
	for _, id := range tagIDs {
		if _, ok := s.tags[id]; !ok {
			return domain.NewNotFoundError("tag", id)
		}
		set[id] = struct{}{}
	}
	return nil
}

// CountTags returns the number of stored tags.
func (s *Store) CountTags() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tags)
}
