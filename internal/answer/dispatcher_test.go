package answer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  map[int64]string
	err   error
	calls int
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.sent == nil {
		s.sent = make(map[int64]string)
	}
	s.sent[chatID] = text
	return s.err
}

type echoAnswerer struct{}

func (echoAnswerer) Answer(ctx context.Context, query string) string {
	return "re: " + query + " #" + RequestID(ctx)
}

func TestBot_HandleAssignsRequestID(t *testing.T) {
	sender := &recordingSender{}
	bot := &Bot{Answerer: echoAnswerer{}, Sender: sender}

	bot.Handle(context.Background(), 42, "hi")

	require.Equal(t, 1, sender.calls)
	assert.Regexp(t, `^re: hi #[0-9a-f-]{36}$`, sender.sent[42])
}

func TestBot_HandleKeepsExistingRequestID(t *testing.T) {
	sender := &recordingSender{}
	bot := &Bot{Answerer: echoAnswerer{}, Sender: sender}

	bot.Handle(WithRequestID(context.Background(), "req-1"), 7, "hi")

	assert.Equal(t, "re: hi #req-1", sender.sent[7])
}

func TestDispatcher_ProcessesAllJobsBeforeClose(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int64
	)
	d := NewDispatcher(func(_ context.Context, chatID int64, _ string) {
		mu.Lock()
		seen = append(seen, chatID)
		mu.Unlock()
	}, 3, 10)
	d.Start(context.Background())

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, d.Submit(i, "q"))
	}
	d.Close()

	assert.Len(t, seen, 10)
	assert.ErrorIs(t, d.Submit(11, "q"), ErrClosed)
}

func TestDispatcher_RejectsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	d := NewDispatcher(func(context.Context, int64, string) {
		started <- struct{}{}
		<-release
	}, 1, 1)
	d.Start(context.Background())

	require.NoError(t, d.Submit(1, "busy"))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up the first job")
	}
	require.NoError(t, d.Submit(2, "queued"))
	assert.ErrorIs(t, d.Submit(3, "rejected"), ErrQueueFull)

	close(release)
	d.Close()
}

func TestDispatcher_SurvivesPanickingJob(t *testing.T) {
	done := make(chan int64, 2)
	d := NewDispatcher(func(_ context.Context, chatID int64, _ string) {
		if chatID == 1 {
			panic("bad job")
		}
		done <- chatID
	}, 1, 2)
	d.Start(context.Background())

	require.NoError(t, d.Submit(1, "q"))
	require.NoError(t, d.Submit(2, "q"))
	d.Close()

	assert.Equal(t, int64(2), <-done)
}
