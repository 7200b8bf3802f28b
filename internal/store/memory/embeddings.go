package memory

import (
	"context"

	"studymate/internal/domain"
)

// UpsertEmbedding replaces the sidecar vector of a chunk.
func (s *Store) UpsertEmbedding(_ context.Context, e domain.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[e.ChunkID]; !ok {
		return domain.NewNotFoundError("chunk", e.ChunkID)
	}
	e.Vector = append([]float64(nil), e.Vector...)
	s.embeddings[e.ChunkID] = e
	return nil
}

// ListChunksMissingEmbedding returns chunks without a vector or whose vector
// was computed from different content.
func (s *Store) ListChunksMissingEmbedding(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(c domain.Chunk) bool {
		e, ok := s.embeddings[c.ID]
		return !ok || e.ContentHash != c.ContentHash()
	}), nil
}

// FreshEmbeddings returns the stored vectors of chunks whose content has not
// changed since the vector was computed.
func (s *Store) FreshEmbeddings(_ context.Context, chunks []domain.Chunk) (map[int64][]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64][]float64, len(chunks))
	for _, c := range chunks {
		e, ok := s.embeddings[c.ID]
		if ok && e.ContentHash == c.ContentHash() {
			out[c.ID] = e.Vector
		}
	}
	return out, nil
}

// Embedding returns the stored embedding of a chunk, if any.
func (s *Store) Embedding(chunkID int64) (domain.Embedding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.embeddings[chunkID]
	return e, ok
}
