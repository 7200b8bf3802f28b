package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"studymate/internal/db"
	"studymate/internal/domain"
)

// UpsertEmbedding replaces the stored vector of a chunk.
func (s *Store) UpsertEmbedding(ctx context.Context, e domain.Embedding) error {
	data, err := json.Marshal(e.Vector)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	insert := s.b.Insert(db.VectorsTableName).
		Columns("chunk_id", "embedding", "content_hash", "updated_at").
		Values(e.ChunkID, string(data), e.ContentHash, s.now().UTC()).
		OnConflict(entsql.ConflictColumns("chunk_id"), entsql.ResolveWithNewValues())
	if _, err := s.exec(ctx, insert); err != nil {
		if code, _ := pqCode(err); code == codeForeignKeyViolation {
			return domain.NewNotFoundError("chunk", e.ChunkID)
		}
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

// FreshEmbeddings returns the stored vectors of chunks whose content has not
// changed since the vector was computed.
func (s *Store) FreshEmbeddings(ctx context.Context, chunks []domain.Chunk) (map[int64][]float64, error) {
	out := make(map[int64][]float64, len(chunks))
	if len(chunks) == 0 {
		return out, nil
	}
	want := make(map[int64]string, len(chunks))
	ids := make([]any, 0, len(chunks))
	for _, c := range chunks {
		want[c.ID] = c.ContentHash()
		ids = append(ids, c.ID)
	}

	rows, err := s.query(ctx, s.b.Select("chunk_id", "embedding", "content_hash").
		From(s.b.Table(db.VectorsTableName)).
		Where(entsql.In("chunk_id", ids...)))
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			chunkID int64
			raw     []byte
			hash    string
		)
		if err := rows.Scan(&chunkID, &raw, &hash); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		if want[chunkID] != hash {
			continue
		}
		var vec []float64
		if err := json.Unmarshal(raw, &vec); err != nil {
			return nil, fmt.Errorf("decode vector of chunk %d: %w", chunkID, err)
		}
		out[chunkID] = vec
	}
	return out, rows.Err()
}
