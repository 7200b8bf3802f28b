// Package ranking re-ranks tag-matched candidate chunks by cosine similarity
// between the query and chunk embeddings.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"studymate/internal/domain"
)

const (
	DefaultTopK      = 3
	DefaultThreshold = 0.0
)

// Embedder computes embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingLookup returns persisted vectors that are still fresh for the
// given chunks. Chunks without one are absent from the result.
type EmbeddingLookup interface {
	FreshEmbeddings(ctx context.Context, chunks []domain.Chunk) (map[int64][]float64, error)
}

// Scored is a candidate with its similarity to the query.
type Scored struct {
	Chunk domain.Chunk
	Score float64
}

// Ranker orders candidates by similarity and keeps the best ones.
type Ranker struct {
	embedder  Embedder
	lookup    EmbeddingLookup
	topK      int
	threshold float64
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithTopK sets the maximum number of returned chunks.
func WithTopK(k int) Option {
	return func(r *Ranker) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithThreshold sets the minimum similarity a candidate needs.
func WithThreshold(t float64) Option {
	return func(r *Ranker) { r.threshold = t }
}

// WithEmbeddingLookup reuses persisted vectors when they are fresh; only
// candidates without one are embedded on demand.
func WithEmbeddingLookup(l EmbeddingLookup) Option {
	return func(r *Ranker) { r.lookup = l }
}

// NewRanker creates a Ranker.
func NewRanker(embedder Embedder, opts ...Option) *Ranker {
	r := &Ranker{embedder: embedder, topK: DefaultTopK, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns at most topK candidates with similarity at or above the
// threshold, best first. Equal scores keep the candidate order. An empty
// candidate list returns immediately without embedding the query.
func (r *Ranker) Rank(ctx context.Context, query string, candidates []domain.Chunk) ([]Scored, error) {
	if len(candidates) == 0 {
		logrus.Debug("service: no candidates to rank")
		return []Scored{}, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	stored := r.persisted(ctx, candidates)

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		vec, ok := stored[c.ID]
		if !ok {
			vec, err = r.embedder.Embed(ctx, c.Content)
			if err != nil {
				return nil, fmt.Errorf("embed chunk %d: %w", c.ID, err)
			}
		}
		score := CosineSimilarity(queryVec, vec)
		logrus.WithFields(logrus.Fields{
			"chunk_id": c.ID,
			"score":    score,
		}).Debug("service: candidate scored")
		if score >= r.threshold {
			scored = append(scored, Scored{Chunk: c, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}

	ids := make([]int64, 0, len(scored))
	for _, s := range scored {
		ids = append(ids, s.Chunk.ID)
	}
	logrus.WithFields(logrus.Fields{
		"threshold": r.threshold,
		"chunk_ids": ids,
	}).Info("service: top relevant chunks selected")
	return scored, nil
}

func (r *Ranker) persisted(ctx context.Context, candidates []domain.Chunk) map[int64][]float64 {
	if r.lookup == nil {
		return nil
	}
	vectors, err := r.lookup.FreshEmbeddings(ctx, candidates)
	if err != nil {
		logrus.WithError(err).Warn("service: stored embeddings unavailable, embedding on demand")
		return nil
	}
	return vectors
}

// CosineSimilarity returns dot(a,b)/(|a||b|). Zero-norm vectors and vectors
// of different length score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
