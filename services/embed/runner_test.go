package embed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymate/internal/tags"
)

type blockingTags struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (b *blockingTags) BackfillTags(context.Context) (tags.BackfillReport, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()
	if first {
		b.started <- struct{}{}
		<-b.release
	}
	return tags.BackfillReport{}, nil
}

func (b *blockingTags) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type orderRecorder struct {
	mu    sync.Mutex
	order []string
	err   error
}

func (o *orderRecorder) BackfillTags(context.Context) (tags.BackfillReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = append(o.order, "tags")
	return tags.BackfillReport{Processed: 1}, o.err
}

func (o *orderRecorder) BackfillEmbeddings(context.Context) (Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = append(o.order, "embeddings")
	return Report{Processed: 1, Embedded: 1}, nil
}

func TestRunner_RunOnceOrder(t *testing.T) {
	rec := &orderRecorder{}
	r := NewRunner(rec, rec)

	report, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tags", "embeddings"}, rec.order)
	assert.Equal(t, 1, report.Tags.Processed)
	assert.Equal(t, 1, report.Embeddings.Embedded)
}

func TestRunner_RunOnceStopsOnTagFailure(t *testing.T) {
	rec := &orderRecorder{err: errors.New("list chunks")}
	r := NewRunner(rec, rec)

	_, err := r.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"tags"}, rec.order)
}

func TestRunner_CoalescesTriggers(t *testing.T) {
	tb := &blockingTags{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewRunner(tb, &orderRecorder{})

	r.Start(context.Background())
	select {
	case <-tb.started:
	case <-time.After(time.Second):
		t.Fatal("initial sweep did not start")
	}

	for i := 0; i < 5; i++ {
		r.Trigger()
	}
	close(tb.release)
	r.Wait()

	assert.Equal(t, 2, tb.count())
}

func TestRunner_IdleTriggerRunsOnce(t *testing.T) {
	rec := &orderRecorder{}
	r := NewRunner(rec, rec)

	r.Trigger()
	r.Wait()

	assert.Equal(t, []string{"tags", "embeddings"}, rec.order)
}
