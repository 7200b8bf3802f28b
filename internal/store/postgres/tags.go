package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	entsql "entgo.io/ent/dialect/sql"

	"studymate/internal/db"
	"studymate/internal/domain"
)

var errNoTag = errors.New("tag not found after insert")

// GetOrCreateTag returns the tag named name, creating it when absent. The
// insert skips on a name conflict and the row is read back, so concurrent
// callers never create duplicates.
func (s *Store) GetOrCreateTag(ctx context.Context, name string) (domain.Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return domain.Tag{}, domain.NewValidationError("tag", "must not be empty")
	}
	insert := s.b.Insert(db.TagsTableName).
		Columns("name").
		Values(name).
		OnConflict(entsql.ConflictColumns("name"), entsql.DoNothing())
	if _, err := s.exec(ctx, insert); err != nil {
		return domain.Tag{}, fmt.Errorf("insert tag: %w", err)
	}

	t := domain.Tag{Name: name}
	sel := s.b.Select("id").From(s.b.Table(db.TagsTableName)).Where(entsql.EQ("name", name))
	if err := s.queryRow(ctx, sel).Scan(&t.ID); err != nil {
		return domain.Tag{}, fmt.Errorf("%w: %s: %v", errNoTag, name, err)
	}
	return t, nil
}

// AddChunkTags unions tagIDs into the chunk's tag set.
func (s *Store) AddChunkTags(ctx context.Context, chunkID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		_, err := s.GetChunk(ctx, chunkID)
		return err
	}
	insert := s.b.Insert(db.ChunkTagsTableName).Columns("chunk_id", "tag_id")
	for _, id := range tagIDs {
		insert.Values(chunkID, id)
	}
	insert.OnConflict(entsql.ConflictColumns("chunk_id", "tag_id"), entsql.DoNothing())

	if _, err := s.exec(ctx, insert); err != nil {
		if code, constraint := pqCode(err); code == codeForeignKeyViolation {
			if constraint == "chunk_tags_tag_id" {
				return domain.NewNotFoundError("tag", tagIDs)
			}
			return domain.NewNotFoundError("chunk", chunkID)
		}
		return fmt.Errorf("insert chunk tags: %w", err)
	}
	return nil
}
