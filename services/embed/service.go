// Package embed keeps chunk embeddings up to date and splits markdown
// documents into chunks for ingestion.
package embed

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"studymate/internal/domain"
)

// DefaultWorkers is the number of concurrent embedding calls of a sweep.
const DefaultWorkers = 4

// Store is the embedding sidecar the backfill writes to.
type Store interface {
	ListChunksMissingEmbedding(ctx context.Context) ([]domain.Chunk, error)
	UpsertEmbedding(ctx context.Context, e domain.Embedding) error
}

// Embedder computes embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Service fills missing and stale chunk embeddings.
type Service struct {
	Store    Store
	Embedder Embedder
	Workers  int
}

// Report summarizes one BackfillEmbeddings run.
type Report struct {
	Processed int `json:"processed"`
	Embedded  int `json:"embedded"`
	Failed    int `json:"failed"`
}

type embeddingJob struct {
	Chunk domain.Chunk
}

type embeddingResult struct {
	ChunkID int64
	Err     error
}

// BackfillEmbeddings embeds every chunk that has no vector or whose vector
// was computed from older content. A failing chunk is logged and skipped; the
// next sweep retries it.
func (s *Service) BackfillEmbeddings(ctx context.Context) (Report, error) {
	chunks, err := s.Store.ListChunksMissingEmbedding(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list chunks missing embedding: %w", err)
	}
	log := logrus.WithField("chunk_count", len(chunks))
	if len(chunks) == 0 {
		log.Debug("service: no chunks need embedding")
		return Report{}, nil
	}
	log.Info("service: embedding backfill started")

	report := Report{Processed: len(chunks)}
	for res := range s.embedChunks(ctx, chunks) {
		if res.Err != nil {
			report.Failed++
			logrus.WithError(res.Err).WithField("chunk_id", res.ChunkID).Warn("service: failed to embed chunk")
			continue
		}
		report.Embedded++
	}

	log.WithFields(logrus.Fields{
		"embedded": report.Embedded,
		"failed":   report.Failed,
	}).Info("service: embedding backfill finished")
	return report, ctx.Err()
}

// embedChunks runs a pool of workers over chunks and streams one result per
// chunk. The channel is closed when every worker is done.
func (s *Service) embedChunks(ctx context.Context, chunks []domain.Chunk) <-chan embeddingResult {
	numWorkers := s.Workers
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	jobs := make(chan embeddingJob, len(chunks))
	results := make(chan embeddingResult, len(chunks))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go s.embeddingWorker(ctx, &wg, jobs, results)
	}

	for _, c := range chunks {
		jobs <- embeddingJob{Chunk: c}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

func (s *Service) embeddingWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan embeddingJob, results chan<- embeddingResult) {
	defer wg.Done()
	for job := range jobs {
		results <- embeddingResult{ChunkID: job.Chunk.ID, Err: s.embedOne(ctx, job.Chunk)}
	}
}

func (s *Service) embedOne(ctx context.Context, c domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	vector, err := s.Embedder.Embed(ctx, c.Content)
	if err != nil {
		return err
	}
	return s.Store.UpsertEmbedding(ctx, domain.Embedding{
		ChunkID:     c.ID,
		Vector:      vector,
		ContentHash: c.ContentHash(),
	})
}
