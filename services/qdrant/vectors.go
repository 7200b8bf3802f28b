// Package qdrant keeps chunk embeddings in a Qdrant collection, one point
// per chunk keyed by the chunk id.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"studymate/internal/domain"
)

const (
	payloadChunkID     = "chunk_id"
	payloadContentHash = "content_hash"

	getBatchSize = 256
)

// PointsAPI is the part of qdrant.PointsClient the sidecar uses.
type PointsAPI interface {
	Upsert(ctx context.Context, in *qdrant.UpsertPoints, opts ...grpc.CallOption) (*qdrant.PointsOperationResponse, error)
	Get(ctx context.Context, in *qdrant.GetPoints, opts ...grpc.CallOption) (*qdrant.GetResponse, error)
}

// ChunkLister lists the chunks whose vectors are kept here.
type ChunkLister interface {
	ListAllChunks(ctx context.Context) ([]domain.Chunk, error)
}

// VectorStore is an embedding sidecar backed by a Qdrant collection.
type VectorStore struct {
	Points     PointsAPI
	Chunks     ChunkLister
	Collection string
}

// UpsertEmbedding writes the vector of a chunk, replacing the previous one.
func (v *VectorStore) UpsertEmbedding(ctx context.Context, e domain.Embedding) error {
	wait := true
	_, err := v.Points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: v.Collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDNum(uint64(e.ChunkID)),
			Vectors: qdrant.NewVectors(toFloat32(e.Vector)...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadChunkID:     e.ChunkID,
				payloadContentHash: e.ContentHash,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert point %d: %w", e.ChunkID, err)
	}
	return nil
}

// FreshEmbeddings returns the vectors of chunks whose stored content hash
// matches their current content.
func (v *VectorStore) FreshEmbeddings(ctx context.Context, chunks []domain.Chunk) (map[int64][]float64, error) {
	points, err := v.points(ctx, chunks, true)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]float64, len(chunks))
	for _, c := range chunks {
		p, ok := points[c.ID]
		if !ok || hashOf(p) != c.ContentHash() {
			continue
		}
		if data := p.GetVectors().GetVector().GetData(); len(data) > 0 {
			out[c.ID] = toFloat64(data)
		}
	}
	return out, nil
}

// ListChunksMissingEmbedding returns chunks that have no point or whose point
// was computed from different content.
func (v *VectorStore) ListChunksMissingEmbedding(ctx context.Context) ([]domain.Chunk, error) {
	chunks, err := v.Chunks.ListAllChunks(ctx)
	if err != nil {
		return nil, err
	}
	points, err := v.points(ctx, chunks, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Chunk, 0)
	for _, c := range chunks {
		p, ok := points[c.ID]
		if !ok || hashOf(p) != c.ContentHash() {
			out = append(out, c)
		}
	}
	return out, nil
}

// points fetches the stored points of chunks in batches, keyed by chunk id.
func (v *VectorStore) points(ctx context.Context, chunks []domain.Chunk, withVectors bool) (map[int64]*qdrant.RetrievedPoint, error) {
	out := make(map[int64]*qdrant.RetrievedPoint, len(chunks))
	for start := 0; start < len(chunks); start += getBatchSize {
		end := min(start+getBatchSize, len(chunks))
		ids := make([]*qdrant.PointId, 0, end-start)
		for _, c := range chunks[start:end] {
			ids = append(ids, qdrant.NewIDNum(uint64(c.ID)))
		}

		resp, err := v.Points.Get(ctx, &qdrant.GetPoints{
			CollectionName: v.Collection,
			Ids:            ids,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(withVectors),
		})
		if err != nil {
			return nil, fmt.Errorf("get points: %w", err)
		}
		for _, p := range resp.GetResult() {
			out[int64(p.GetId().GetNum())] = p
		}
	}
	logrus.WithFields(logrus.Fields{
		"collection": v.Collection,
		"requested":  len(chunks),
		"found":      len(out),
	}).Debug("service: fetched qdrant points")
	return out, nil
}

func hashOf(p *qdrant.RetrievedPoint) string {
	return p.GetPayload()[payloadContentHash].GetStringValue()
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, f := range in {
		out[i] = float64(f)
	}
	return out
}
