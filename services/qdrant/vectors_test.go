package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"studymate/internal/domain"
)

type fakePoints struct {
	stored   map[uint64]*qdrant.RetrievedPoint
	upserted []*qdrant.PointStruct
	getCalls int
	err      error
}

func (f *fakePoints) Upsert(_ context.Context, in *qdrant.UpsertPoints, _ ...grpc.CallOption) (*qdrant.PointsOperationResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserted = append(f.upserted, in.GetPoints()...)
	return &qdrant.PointsOperationResponse{}, nil
}

func (f *fakePoints) Get(_ context.Context, in *qdrant.GetPoints, _ ...grpc.CallOption) (*qdrant.GetResponse, error) {
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	resp := &qdrant.GetResponse{}
	for _, id := range in.GetIds() {
		if p, ok := f.stored[id.GetNum()]; ok {
			resp.Result = append(resp.Result, p)
		}
	}
	return resp, nil
}

func (f *fakePoints) seed(chunkID int64, hash string, vec ...float32) {
	if f.stored == nil {
		f.stored = make(map[uint64]*qdrant.RetrievedPoint)
	}
	f.stored[uint64(chunkID)] = &qdrant.RetrievedPoint{
		Id:      qdrant.NewIDNum(uint64(chunkID)),
		Payload: qdrant.NewValueMap(map[string]any{payloadContentHash: hash}),
		Vectors: &qdrant.VectorsOutput{
			VectorsOptions: &qdrant.VectorsOutput_Vector{Vector: &qdrant.VectorOutput{Data: vec}},
		},
	}
}

type staticChunks []domain.Chunk

func (s staticChunks) ListAllChunks(context.Context) ([]domain.Chunk, error) { return s, nil }

func TestVectorStore_UpsertEmbedding(t *testing.T) {
	points := &fakePoints{}
	vs := &VectorStore{Points: points, Collection: "chunks"}

	err := vs.UpsertEmbedding(context.Background(), domain.Embedding{ChunkID: 7, Vector: []float64{1, 0.5}, ContentHash: "abc"})
	require.NoError(t, err)

	require.Len(t, points.upserted, 1)
	p := points.upserted[0]
	assert.Equal(t, uint64(7), p.GetId().GetNum())
	assert.Equal(t, "abc", p.GetPayload()[payloadContentHash].GetStringValue())
	assert.Equal(t, int64(7), p.GetPayload()[payloadChunkID].GetIntegerValue())
}

func TestVectorStore_UpsertError(t *testing.T) {
	vs := &VectorStore{Points: &fakePoints{err: errors.New("unavailable")}, Collection: "chunks"}

	err := vs.UpsertEmbedding(context.Background(), domain.Embedding{ChunkID: 1, Vector: []float64{1}})
	assert.ErrorContains(t, err, "upsert point 1")
}

func TestVectorStore_Freshness(t *testing.T) {
	fresh := domain.Chunk{ID: 1, Content: "limits"}
	stale := domain.Chunk{ID: 2, Content: "derivatives, revised"}
	missing := domain.Chunk{ID: 3, Content: "integrals"}

	points := &fakePoints{}
	points.seed(fresh.ID, fresh.ContentHash(), 1, 0.5)
	points.seed(stale.ID, domain.HashContent("derivatives"), 0, 1)

	vs := &VectorStore{
		Points:     points,
		Chunks:     staticChunks{fresh, stale, missing},
		Collection: "chunks",
	}
	ctx := context.Background()

	vectors, err := vs.FreshEmbeddings(ctx, []domain.Chunk{fresh, stale, missing})
	require.NoError(t, err)
	assert.Equal(t, map[int64][]float64{1: {1, 0.5}}, vectors)

	todo, err := vs.ListChunksMissingEmbedding(ctx)
	require.NoError(t, err)
	require.Len(t, todo, 2)
	assert.Equal(t, int64(2), todo[0].ID)
	assert.Equal(t, int64(3), todo[1].ID)
}

func TestVectorStore_BatchesLookups(t *testing.T) {
	chunks := make([]domain.Chunk, getBatchSize+1)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: int64(i + 1), Content: "c"}
	}
	points := &fakePoints{}
	vs := &VectorStore{Points: points, Chunks: staticChunks(chunks), Collection: "chunks"}

	todo, err := vs.ListChunksMissingEmbedding(context.Background())
	require.NoError(t, err)
	assert.Len(t, todo, len(chunks))
	assert.Equal(t, 2, points.getCalls)
}
