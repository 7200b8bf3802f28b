package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"studymate/internal/answer"
	"studymate/services/telegram"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Dispatcher queues a chat message for answering.
type Dispatcher interface {
	Submit(chatID int64, text string) error
}

// WebhookHandler receives Telegram updates.
type WebhookHandler struct {
	Dispatcher Dispatcher
	Sender     answer.Sender
	// Secret, when set, must match the secret token header of every update.
	Secret string
}

// Receive handles POST /api/telegram/webhook. Accepted updates are always
// acknowledged with 200 so Telegram does not redeliver them.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h.Secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretTokenHeader)), []byte(h.Secret)) != 1 {
		logrus.WithField("ip", r.RemoteAddr).Warn("handler: webhook call with wrong secret token")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logrus.WithError(err).Warn("handler: malformed telegram update")
	} else {
		h.handle(r.Context(), update)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handle(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil {
		logrus.WithField("update_id", update.UpdateID).Warn("handler: received update without message")
		return
	}
	log := logrus.WithFields(logrus.Fields{
		"update_id": update.UpdateID,
		"chat_id":   msg.Chat.ID,
	})

	if strings.TrimSpace(msg.Text) == "" {
		log.Warn("handler: received non-text message")
		h.notify(ctx, msg.Chat.ID, answer.MsgTextOnly)
		return
	}

	log.Info("handler: received message")
	if err := h.Dispatcher.Submit(msg.Chat.ID, msg.Text); err != nil {
		log.WithError(err).Warn("handler: message not queued")
		h.notify(ctx, msg.Chat.ID, answer.MsgUnavailable)
	}
}

func (h *WebhookHandler) notify(ctx context.Context, chatID int64, text string) {
	if err := h.Sender.SendMessage(ctx, chatID, text); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("handler: failed to send notice")
	}
}

// Health handles GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
