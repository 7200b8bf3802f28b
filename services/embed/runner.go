package embed

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"studymate/internal/tags"
)

// TagBackfiller fills missing chunk tags.
type TagBackfiller interface {
	BackfillTags(ctx context.Context) (tags.BackfillReport, error)
}

// EmbeddingBackfiller fills missing chunk embeddings.
type EmbeddingBackfiller interface {
	BackfillEmbeddings(ctx context.Context) (Report, error)
}

// SweepReport is the outcome of one maintenance sweep.
type SweepReport struct {
	Tags       tags.BackfillReport `json:"tags"`
	Embeddings Report              `json:"embeddings"`
}

// Runner sequences the tag backfill and the embedding backfill. At most one
// sweep runs at a time. Triggers that arrive while a sweep runs collapse
// into a single follow-up sweep.
type Runner struct {
	tags       TagBackfiller
	embeddings EmbeddingBackfiller

	sweepMu sync.Mutex

	mu      sync.Mutex
	ctx     context.Context
	running bool
	pending bool
	wg      sync.WaitGroup
}

// NewRunner creates a Runner.
func NewRunner(tags TagBackfiller, embeddings EmbeddingBackfiller) *Runner {
	return &Runner{tags: tags, embeddings: embeddings, ctx: context.Background()}
}

// Start binds background sweeps to ctx and schedules the initial sweep.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	r.Trigger()
}

// Trigger schedules a background sweep without waiting for it.
func (r *Runner) Trigger() {
	r.mu.Lock()
	if r.running {
		r.pending = true
		r.mu.Unlock()
		return
	}
	r.running = true
	ctx := r.ctx
	r.wg.Add(1)
	r.mu.Unlock()

	go r.loop(ctx)
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()
	for {
		if _, err := r.RunOnce(ctx); err != nil {
			logrus.WithError(err).Error("service: maintenance sweep failed")
		}

		r.mu.Lock()
		if !r.pending || ctx.Err() != nil {
			r.running = false
			r.pending = false
			r.mu.Unlock()
			return
		}
		r.pending = false
		r.mu.Unlock()
	}
}

// RunOnce runs one sweep synchronously: tags first, so chunks tagged in this
// sweep are searchable, then embeddings.
func (r *Runner) RunOnce(ctx context.Context) (SweepReport, error) {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	var report SweepReport
	tagReport, err := r.tags.BackfillTags(ctx)
	report.Tags = tagReport
	if err != nil {
		return report, err
	}
	embReport, err := r.embeddings.BackfillEmbeddings(ctx)
	report.Embeddings = embReport
	if err != nil {
		return report, err
	}

	logrus.WithFields(logrus.Fields{
		"tags_processed":     tagReport.Processed,
		"tags_failed":        tagReport.Failed,
		"embeddings_written": embReport.Embedded,
		"embeddings_failed":  embReport.Failed,
	}).Info("service: maintenance sweep done")
	return report, nil
}

// Wait blocks until no background sweep is running.
func (r *Runner) Wait() {
	r.wg.Wait()
}
