// Package inference exposes the capability-level operations the answer
// pipeline needs from the text/embedding provider: classification, keyword
// extraction, embeddings and answer generation.
package inference

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"studymate/internal/domain"
)

// DefaultTimeout bounds a single provider call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Message is one chat message sent to the completion endpoint.
type Message struct {
	Role string
	Text string
}

// Provider is the transport-level contract of an inference backend.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Gateway wraps a Provider with prompts, response parsing, a per-call
// timeout and an optional rate limit.
type Gateway struct {
	provider Provider
	timeout  time.Duration
	limiter  *rate.Limiter
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRateLimit limits provider calls to perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(g *Gateway) {
		if perSecond <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewGateway creates a Gateway over provider.
func NewGateway(provider Provider, opts ...Option) *Gateway {
	g := &Gateway{provider: provider, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsStudyQuestion asks the model whether query is study-related.
func (g *Gateway) IsStudyQuestion(ctx context.Context, query string) (bool, error) {
	answer, err := g.complete(ctx, "classify_study", studyQuestionPrompt(query))
	if err != nil {
		return false, err
	}
	isStudy := ParseBinaryDecision(answer)
	logrus.WithFields(logrus.Fields{
		"raw":      answer,
		"is_study": isStudy,
	}).Debug("inference: study classification")
	return isStudy, nil
}

// IsLocationQuery asks the model whether the user wants to know where the
// material lives rather than its substance.
func (g *Gateway) IsLocationQuery(ctx context.Context, query string) (bool, error) {
	answer, err := g.complete(ctx, "classify_location", locationQueryPrompt(query))
	if err != nil {
		return false, err
	}
	isLocation := ParseBinaryDecision(answer)
	logrus.WithFields(logrus.Fields{
		"raw":         answer,
		"is_location": isLocation,
	}).Debug("inference: location classification")
	return isLocation, nil
}

// ExtractTags asks the model for normalized keywords of text.
func (g *Gateway) ExtractTags(ctx context.Context, text string) ([]string, error) {
	answer, err := g.complete(ctx, "extract_tags", tagsPrompt(text))
	if err != nil {
		return nil, err
	}
	tags := ParseTags(answer)
	logrus.WithField("tags", tags).Debug("inference: tags extracted")
	return tags, nil
}

// Embed returns the embedding vector of text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()
	if err := g.wait(ctx); err != nil {
		return nil, wrapError("embed", err)
	}
	vector, err := g.provider.Embed(ctx, text)
	if err != nil {
		return nil, wrapError("embed", err)
	}
	if len(vector) == 0 {
		return nil, wrapError("embed", errors.New("empty embedding"))
	}
	return vector, nil
}

// ShortAnswer produces a concise answer without retrieved context.
func (g *Gateway) ShortAnswer(ctx context.Context, query string) (string, error) {
	return g.complete(ctx, "short_answer", shortAnswerPrompt(query))
}

// GroundedAnswer answers query using only the content of chunks.
func (g *Gateway) GroundedAnswer(ctx context.Context, query string, chunks []domain.Chunk) (string, error) {
	return g.complete(ctx, "grounded_answer", groundedAnswerPrompt(query, chunks))
}

func (g *Gateway) complete(ctx context.Context, op, prompt string) (string, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()
	if err := g.wait(ctx); err != nil {
		return "", wrapError(op, err)
	}
	answer, err := g.provider.Complete(ctx, []Message{
		{Role: "system", Text: systemRole},
		{Role: "user", Text: prompt},
	})
	if err != nil {
		logrus.WithError(err).WithField("op", op).Warn("inference: completion failed")
		return "", wrapError(op, err)
	}
	return answer, nil
}

func (g *Gateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}
