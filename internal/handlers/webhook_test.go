package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"studymate/internal/answer"
)

type fakeDispatcher struct {
	submitted map[int64]string
	err       error
}

func (d *fakeDispatcher) Submit(chatID int64, text string) error {
	if d.err != nil {
		return d.err
	}
	if d.submitted == nil {
		d.submitted = make(map[int64]string)
	}
	d.submitted[chatID] = text
	return nil
}

type fakeSender struct {
	sent map[int64]string
}

func (s *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	if s.sent == nil {
		s.sent = make(map[int64]string)
	}
	s.sent[chatID] = text
	return nil
}

func postUpdate(h *WebhookHandler, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/telegram/webhook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.Receive(rec, req)
	return rec
}

func TestWebhook(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		dispatchErr   error
		wantSubmitted map[int64]string
		wantSent      map[int64]string
	}{
		{
			name:          "text message is dispatched",
			body:          `{"update_id":1,"message":{"message_id":5,"chat":{"id":42},"text":"what is a limit?"}}`,
			wantSubmitted: map[int64]string{42: "what is a limit?"},
		},
		{
			name:     "non-text message gets notice",
			body:     `{"update_id":2,"message":{"message_id":6,"chat":{"id":42},"sticker":{}}}`,
			wantSent: map[int64]string{42: answer.MsgTextOnly},
		},
		{
			name: "update without message is ignored",
			body: `{"update_id":3,"edited_message":{"chat":{"id":42},"text":"x"}}`,
		},
		{
			name: "malformed body is acknowledged",
			body: `{"update_id":`,
		},
		{
			name:        "full queue answers with failure text",
			body:        `{"update_id":4,"message":{"message_id":7,"chat":{"id":7},"text":"hi"}}`,
			dispatchErr: answer.ErrQueueFull,
			wantSent:    map[int64]string{7: answer.MsgUnavailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{err: tt.dispatchErr}
			s := &fakeSender{}
			h := &WebhookHandler{Dispatcher: d, Sender: s}

			rec := postUpdate(h, tt.body, "")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantSubmitted, d.submitted)
			assert.Equal(t, tt.wantSent, s.sent)
		})
	}
}

func TestWebhook_SecretToken(t *testing.T) {
	d := &fakeDispatcher{}
	h := &WebhookHandler{Dispatcher: d, Sender: &fakeSender{}, Secret: "hook-secret"}
	body := `{"update_id":1,"message":{"chat":{"id":1},"text":"hi"}}`

	assert.Equal(t, http.StatusUnauthorized, postUpdate(h, body, "wrong").Code)
	assert.Nil(t, d.submitted)

	assert.Equal(t, http.StatusOK, postUpdate(h, body, "hook-secret").Code)
	assert.Equal(t, "hi", d.submitted[1])
}
