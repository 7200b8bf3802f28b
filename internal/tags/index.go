// Package tags maintains the keyword index used as the coarse recall filter
// in front of semantic ranking.
package tags

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"studymate/internal/domain"
)

// Store is the persistence the index needs.
type Store interface {
	FindChunksByTags(ctx context.Context, names []string) ([]domain.Chunk, error)
	ListAllChunks(ctx context.Context) ([]domain.Chunk, error)
	GetOrCreateTag(ctx context.Context, name string) (domain.Tag, error)
	AddChunkTags(ctx context.Context, chunkID int64, tagIDs []int64) error
}

// Extractor produces normalized keywords for a piece of text.
type Extractor interface {
	ExtractTags(ctx context.Context, text string) ([]string, error)
}

// Index answers tag lookups and backfills tags for stored chunks.
type Index struct {
	Store     Store
	Extractor Extractor
}

// BackfillReport summarizes one BackfillTags run. Tagged counts the chunks
// that gained at least one tag they did not have before.
type BackfillReport struct {
	Processed int `json:"processed"`
	Tagged    int `json:"tagged"`
	Failed    int `json:"failed"`
}

// Normalize trims and lower-cases tags, dropping empty and repeated entries.
// The first occurrence order is kept.
func Normalize(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// FindByTags returns the chunks associated with at least one of tags. An
// empty tag set matches nothing.
func (i *Index) FindByTags(ctx context.Context, tags []string) ([]domain.Chunk, error) {
	names := Normalize(tags)
	if len(names) == 0 {
		return []domain.Chunk{}, nil
	}
	chunks, err := i.Store.FindChunksByTags(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("find chunks by tags: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"tags":       names,
		"candidates": len(chunks),
	}).Debug("service: tag lookup done")
	return chunks, nil
}

// BackfillTags extracts tags for every stored chunk and adds them to the
// chunk's tag set. A failure on one chunk is logged and the sweep moves on.
// Tags are only ever added, so repeated runs are idempotent.
func (i *Index) BackfillTags(ctx context.Context) (BackfillReport, error) {
	var report BackfillReport

	chunks, err := i.Store.ListAllChunks(ctx)
	if err != nil {
		return report, fmt.Errorf("list chunks: %w", err)
	}
	logrus.WithField("chunk_count", len(chunks)).Info("service: starting tag backfill")

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++
		log := logrus.WithField("chunk_id", c.ID)

		added, err := i.tagChunk(ctx, c)
		if err != nil {
			report.Failed++
			log.WithError(err).Error("service: failed to tag chunk, skipping")
			continue
		}
		if added > 0 {
			report.Tagged++
			log.WithField("new_tag_count", added).Debug("service: chunk tagged")
		}
	}

	logrus.WithFields(logrus.Fields{
		"processed": report.Processed,
		"tagged":    report.Tagged,
		"failed":    report.Failed,
	}).Info("service: tag backfill completed")
	return report, nil
}

func (i *Index) tagChunk(ctx context.Context, c domain.Chunk) (int, error) {
	extracted, err := i.Extractor.ExtractTags(ctx, c.Content)
	if err != nil {
		return 0, err
	}
	names := Normalize(extracted)
	if len(names) == 0 {
		return 0, nil
	}

	has := make(map[string]struct{}, len(c.Tags))
	for _, t := range c.Tags {
		has[t.Name] = struct{}{}
	}

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if _, ok := has[name]; ok {
			continue
		}
		tag, err := i.Store.GetOrCreateTag(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("get or create tag %q: %w", name, err)
		}
		ids = append(ids, tag.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := i.Store.AddChunkTags(ctx, c.ID, ids); err != nil {
		return 0, fmt.Errorf("add chunk tags: %w", err)
	}
	return len(ids), nil
}
