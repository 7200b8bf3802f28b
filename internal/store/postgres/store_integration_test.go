//go:build integration

package postgres

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymate/internal/db"
	"studymate/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("STUDYMATE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("STUDYMATE_TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	drv, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })

	_, err = drv.DB().ExecContext(ctx, "TRUNCATE courses, downloaded_files, chunks, tags, chunk_tags, chunk_vectors RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return New(drv)
}

func TestStore_Catalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	course, err := s.CreateCourse(ctx, domain.Course{Name: "Calculus"})
	require.NoError(t, err)
	file, err := s.CreateFile(ctx, domain.DownloadedFile{Name: "Lecture1", CourseID: course.ID})
	require.NoError(t, err)

	_, err = s.CreateFile(ctx, domain.DownloadedFile{Name: "x", CourseID: course.ID + 100})
	assert.True(t, domain.IsNotFound(err))

	chunk, err := s.CreateChunk(ctx, domain.Chunk{Title: "Derivative", URL: "u1", Content: "d/dx", FileID: &file.ID})
	require.NoError(t, err)
	assert.Equal(t, "Lecture1", chunk.FileName)
	assert.Equal(t, "Calculus", chunk.CourseName)

	require.NoError(t, s.DeleteCourse(ctx, course.ID))
	_, err = s.GetChunk(ctx, chunk.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestStore_TagsAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateChunk(ctx, domain.Chunk{Content: "vectors and matrices"})
	require.NoError(t, err)
	b, err := s.CreateChunk(ctx, domain.Chunk{Content: "only vectors"})
	require.NoError(t, err)

	vector, err := s.GetOrCreateTag(ctx, "Vector")
	require.NoError(t, err)
	matrix, err := s.GetOrCreateTag(ctx, "matrix")
	require.NoError(t, err)

	require.NoError(t, s.AddChunkTags(ctx, a.ID, []int64{vector.ID, matrix.ID}))
	require.NoError(t, s.AddChunkTags(ctx, a.ID, []int64{vector.ID}))
	require.NoError(t, s.AddChunkTags(ctx, b.ID, []int64{vector.ID}))

	got, err := s.FindChunksByTags(ctx, []string{"VECTOR", "matrix"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Len(t, got[0].Tags, 2)

	err = s.AddChunkTags(ctx, a.ID, []int64{matrix.ID + 1000})
	assert.True(t, domain.IsNotFound(err))
}

func TestStore_GetOrCreateTagConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := make([]int64, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tag, err := s.GetOrCreateTag(ctx, "integral")
			assert.NoError(t, err)
			ids[i] = tag.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestStore_Embeddings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateChunk(ctx, domain.Chunk{Content: "limits"})
	require.NoError(t, err)

	missing, err := s.ListChunksMissingEmbedding(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	require.NoError(t, s.UpsertEmbedding(ctx, domain.Embedding{ChunkID: c.ID, Vector: []float64{1, 0}, ContentHash: c.ContentHash()}))
	missing, err = s.ListChunksMissingEmbedding(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	fresh, err := s.FreshEmbeddings(ctx, []domain.Chunk{c})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, fresh[c.ID])

	c.Content = "limits, revised"
	c, err = s.UpdateChunk(ctx, c)
	require.NoError(t, err)

	missing, err = s.ListChunksMissingEmbedding(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 1)
	fresh, err = s.FreshEmbeddings(ctx, []domain.Chunk{c})
	require.NoError(t, err)
	assert.Empty(t, fresh)
}
