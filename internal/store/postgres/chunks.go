package postgres

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"strings"

	entsql "entgo.io/ent/dialect/sql"

	"studymate/internal/db"
	"studymate/internal/domain"
)

// CreateChunk stores a chunk. Content must be non-empty and the owning file,
// when set, must exist.
func (s *Store) CreateChunk(ctx context.Context, c domain.Chunk) (domain.Chunk, error) {
	if strings.TrimSpace(c.Content) == "" {
		return domain.Chunk{}, domain.NewValidationError("content", "must not be empty")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	var fileID any
	if c.FileID != nil {
		fileID = *c.FileID
	}
	q := s.b.Insert(db.ChunksTableName).
		Columns("title", "url", "content", "content_hash", "created_at", "file_id").
		Values(c.Title, c.URL, c.Content, c.ContentHash(), c.CreatedAt, fileID).
		Returning("id")

	var id int64
	if err := s.queryRow(ctx, q).Scan(&id); err != nil {
		if code, _ := pqCode(err); code == codeForeignKeyViolation {
			return domain.Chunk{}, domain.NewNotFoundError("file", fileID)
		}
		return domain.Chunk{}, fmt.Errorf("insert chunk: %w", err)
	}
	return s.GetChunk(ctx, id)
}

// GetChunk returns a chunk with its tags and location names.
func (s *Store) GetChunk(ctx context.Context, id int64) (domain.Chunk, error) {
	sel, c := s.chunkSelector()
	chunks, err := s.scanChunks(ctx, sel.Where(entsql.EQ(c.C("id"), id)))
	if err != nil {
		return domain.Chunk{}, err
	}
	if len(chunks) == 0 {
		return domain.Chunk{}, domain.NewNotFoundError("chunk", id)
	}
	return chunks[0], nil
}

// UpdateChunk replaces the title, url and content of a stored chunk. The
// stored vector becomes stale when the content changes.
func (s *Store) UpdateChunk(ctx context.Context, c domain.Chunk) (domain.Chunk, error) {
	if strings.TrimSpace(c.Content) == "" {
		return domain.Chunk{}, domain.NewValidationError("content", "must not be empty")
	}
	n, err := s.exec(ctx, s.b.Update(db.ChunksTableName).
		Set("title", c.Title).
		Set("url", c.URL).
		Set("content", c.Content).
		Set("content_hash", c.ContentHash()).
		Where(entsql.EQ("id", c.ID)))
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("update chunk: %w", err)
	}
	if n == 0 {
		return domain.Chunk{}, domain.NewNotFoundError("chunk", c.ID)
	}
	return s.GetChunk(ctx, c.ID)
}

// DeleteChunk removes a chunk. Its tag links and vector are removed by
// cascade; the tags themselves stay.
func (s *Store) DeleteChunk(ctx context.Context, id int64) error {
	n, err := s.exec(ctx, s.b.Delete(db.ChunksTableName).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("chunk", id)
	}
	return nil
}

// ListAllChunks returns every chunk ordered by id.
func (s *Store) ListAllChunks(ctx context.Context) ([]domain.Chunk, error) {
	sel, _ := s.chunkSelector()
	return s.scanChunks(ctx, sel)
}

// FindChunksByTags returns chunks associated with at least one of names,
// compared case-insensitively. Each chunk appears once.
func (s *Store) FindChunksByTags(ctx context.Context, names []string) ([]domain.Chunk, error) {
	if len(names) == 0 {
		return []domain.Chunk{}, nil
	}
	args := make([]any, 0, len(names))
	for _, n := range names {
		args = append(args, strings.ToLower(n))
	}

	ct := s.b.Table(db.ChunkTagsTableName)
	t := s.b.Table(db.TagsTableName)
	matching := s.b.Select(ct.C("chunk_id")).
		From(ct).
		Join(t).On(ct.C("tag_id"), t.C("id")).
		Where(entsql.In(t.C("name"), args...))

	sel, c := s.chunkSelector()
	return s.scanChunks(ctx, sel.Where(entsql.In(c.C("id"), matching)))
}

// ListChunksMissingEmbedding returns chunks without a vector or whose vector
// was computed from different content.
func (s *Store) ListChunksMissingEmbedding(ctx context.Context) ([]domain.Chunk, error) {
	sel, c := s.chunkSelector()
	v := s.b.Table(db.VectorsTableName)
	sel = sel.LeftJoin(v).On(c.C("id"), v.C("chunk_id")).
		Where(entsql.Or(
			entsql.IsNull(v.C("chunk_id")),
			entsql.ColumnsNEQ(v.C("content_hash"), c.C("content_hash")),
		))
	return s.scanChunks(ctx, sel)
}

// chunkSelector selects chunk rows joined with their file and course names,
// ordered by chunk id.
func (s *Store) chunkSelector() (*entsql.Selector, *entsql.SelectTable) {
	c := s.b.Table(db.ChunksTableName)
	f := s.b.Table(db.FilesTableName)
	co := s.b.Table(db.CoursesTableName)
	sel := s.b.Select(
		c.C("id"), c.C("title"), c.C("url"), c.C("content"), c.C("created_at"), c.C("file_id"),
		f.C("name"), co.C("name"),
	).
		From(c).
		LeftJoin(f).On(c.C("file_id"), f.C("id")).
		LeftJoin(co).On(f.C("course_id"), co.C("id")).
		OrderBy(c.C("id"))
	return sel, c
}

func (s *Store) scanChunks(ctx context.Context, sel *entsql.Selector) ([]domain.Chunk, error) {
	rows, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0)
	for rows.Next() {
		var (
			c          domain.Chunk
			fileID     stdsql.NullInt64
			fileName   stdsql.NullString
			courseName stdsql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.URL, &c.Content, &c.CreatedAt, &fileID, &fileName, &courseName); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if fileID.Valid {
			id := fileID.Int64
			c.FileID = &id
		}
		c.FileName = fileName.String
		c.CourseName = courseName.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachTags fills Tags of every chunk with one query, tags sorted by name.
func (s *Store) attachTags(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	pos := make(map[int64]int, len(chunks))
	ids := make([]any, 0, len(chunks))
	for i, c := range chunks {
		pos[c.ID] = i
		ids = append(ids, c.ID)
	}

	ct := s.b.Table(db.ChunkTagsTableName)
	t := s.b.Table(db.TagsTableName)
	rows, err := s.query(ctx, s.b.Select(ct.C("chunk_id"), t.C("id"), t.C("name")).
		From(ct).
		Join(t).On(ct.C("tag_id"), t.C("id")).
		Where(entsql.In(ct.C("chunk_id"), ids...)).
		OrderBy(t.C("name")))
	if err != nil {
		return fmt.Errorf("query chunk tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			chunkID int64
			tag     domain.Tag
		)
		if err := rows.Scan(&chunkID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("scan chunk tag: %w", err)
		}
		i := pos[chunkID]
		chunks[i].Tags = append(chunks[i].Tags, tag)
	}
	return rows.Err()
}
