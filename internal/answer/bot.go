package answer

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sender delivers a reply to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Answerer produces the reply for a query.
type Answerer interface {
	Answer(ctx context.Context, query string) string
}

// Bot answers one chat message and delivers the reply.
type Bot struct {
	Answerer Answerer
	Sender   Sender
}

// Handle answers text and sends the result to chatID. Delivery failures are
// logged and dropped.
func (b *Bot) Handle(ctx context.Context, chatID int64, text string) {
	if RequestID(ctx) == "" {
		ctx = WithRequestID(ctx, uuid.NewString())
	}
	log := logrus.WithFields(logrus.Fields{
		"request_id": RequestID(ctx),
		"chat_id":    chatID,
	})
	log.Info("service: handling message")

	reply := b.Answerer.Answer(ctx, text)
	if err := b.Sender.SendMessage(ctx, chatID, reply); err != nil {
		log.WithError(err).Error("service: failed to deliver reply")
		return
	}
	log.Info("service: reply delivered")
}
