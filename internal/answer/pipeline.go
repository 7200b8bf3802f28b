// Package answer is the orchestrator that turns one user query into one
// reply: classification, two-track retrieval and text composition.
package answer

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"studymate/internal/domain"
	"studymate/internal/ranking"
)

// DefaultMaxQueryLength is the longest accepted query, in characters.
const DefaultMaxQueryLength = 254

// Inference is the subset of the inference gateway the pipeline drives.
type Inference interface {
	IsStudyQuestion(ctx context.Context, query string) (bool, error)
	IsLocationQuery(ctx context.Context, query string) (bool, error)
	ExtractTags(ctx context.Context, text string) ([]string, error)
	ShortAnswer(ctx context.Context, query string) (string, error)
	GroundedAnswer(ctx context.Context, query string, chunks []domain.Chunk) (string, error)
}

// TagIndex finds candidate chunks by tag.
type TagIndex interface {
	FindByTags(ctx context.Context, tags []string) ([]domain.Chunk, error)
}

// Ranker re-ranks candidates against the query.
type Ranker interface {
	Rank(ctx context.Context, query string, candidates []domain.Chunk) ([]ranking.Scored, error)
}

// LinkBuilder builds external reference links.
type LinkBuilder interface {
	BuildLinks(query string) []domain.ExternalLink
}

// Pipeline answers a single query. It is safe for concurrent use as long as
// its collaborators are.
type Pipeline struct {
	Inference      Inference
	Tags           TagIndex
	Ranker         Ranker
	Links          LinkBuilder
	MaxQueryLength int
}

// Answer returns the reply text for query. It never fails: validation
// problems and internal errors are turned into fixed messages.
func (p *Pipeline) Answer(ctx context.Context, query string) (reply string) {
	log := logrus.WithField("request_id", RequestID(ctx))

	if err := p.validate(query); err != nil {
		log.WithError(err).Warn("service: query rejected")
		return MsgTooLong
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("service: panic while answering")
			reply = MsgUnavailable
		}
	}()

	text, err := p.answer(ctx, query)
	if err != nil {
		log.WithError(err).Error("service: error while handling user message")
		return MsgUnavailable
	}
	return text
}

func (p *Pipeline) validate(query string) error {
	limit := p.MaxQueryLength
	if limit <= 0 {
		limit = DefaultMaxQueryLength
	}
	if n := utf8.RuneCountInString(query); n > limit {
		return domain.NewValidationError("query", fmt.Sprintf("%d characters, at most %d allowed", n, limit))
	}
	return nil
}

func (p *Pipeline) answer(ctx context.Context, query string) (string, error) {
	log := logrus.WithField("request_id", RequestID(ctx))

	isStudy, err := p.Inference.IsStudyQuestion(ctx, query)
	if err != nil {
		return "", fmt.Errorf("classify query: %w", err)
	}
	if !isStudy {
		short, err := p.Inference.ShortAnswer(ctx, query)
		if err != nil {
			return "", fmt.Errorf("short answer: %w", err)
		}
		log.Info("service: non-study query answered briefly")
		return short + MsgNudge, nil
	}

	ranked, links, err := p.retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	log.WithFields(logrus.Fields{
		"chunks": len(ranked),
		"links":  len(links),
	}).Info("service: retrieval done")

	if len(ranked) == 0 && len(links) == 0 {
		return MsgNotFound, nil
	}

	chunks := make([]domain.Chunk, 0, len(ranked))
	for _, s := range ranked {
		chunks = append(chunks, s.Chunk)
	}

	var sb strings.Builder
	if len(chunks) > 0 {
		isLocation, err := p.Inference.IsLocationQuery(ctx, query)
		if err != nil {
			return "", fmt.Errorf("classify location: %w", err)
		}
		if !isLocation {
			grounded, err := p.Inference.GroundedAnswer(ctx, query, chunks)
			if err != nil {
				return "", fmt.Errorf("grounded answer: %w", err)
			}
			sb.WriteString(grounded)
		}
		sb.WriteString(formatLocations(chunks))
	} else {
		short, err := p.Inference.ShortAnswer(ctx, query)
		if err != nil {
			return "", fmt.Errorf("fallback answer: %w", err)
		}
		sb.WriteString(MsgNothingInMaterials)
		sb.WriteString("\n")
		sb.WriteString(short)
		sb.WriteString("\n")
	}

	if len(links) > 0 {
		sb.WriteString(MsgLinksLeadIn)
		sb.WriteString(formatLinks(links))
	}
	return sb.String(), nil
}

// retrieve runs the material track (tags, lookup, ranking) and the external
// link track side by side.
func (p *Pipeline) retrieve(ctx context.Context, query string) ([]ranking.Scored, []domain.ExternalLink, error) {
	var (
		ranked []ranking.Scored
		links  []domain.ExternalLink
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		tags, err := p.Inference.ExtractTags(gctx, query)
		if err != nil {
			return fmt.Errorf("extract tags: %w", err)
		}
		candidates, err := p.Tags.FindByTags(gctx, tags)
		if err != nil {
			return err
		}
		ranked, err = p.Ranker.Rank(gctx, query, candidates)
		if err != nil {
			return fmt.Errorf("rank candidates: %w", err)
		}
		return nil
	}))
	g.Go(guard(func() error {
		links = p.Links.BuildLinks(query)
		return nil
	}))

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ranked, links, nil
}

// guard converts a panic inside a retrieval track into an error, since a
// deferred recover in Answer does not see panics of other goroutines.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("retrieval panic: %v", r)
			}
		}()
		return fn()
	}
}
