// Package telegram is a minimal Telegram Bot API client: inbound update
// types and outbound sendMessage.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 1024

	// MaxMessageLength is the Bot API limit on the text of one message.
	MaxMessageLength = 4096
)

// Update is an incoming webhook payload. Only the fields the bot reads are
// decoded.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is a chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// Client sends messages through the Bot API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the bot identified by token. An empty
// baseURL selects the public Bot API.
func NewClient(baseURL, token string, httpClient *http.Client) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}, nil
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendMessage delivers text to chatID as MarkdownV2 with every special
// character escaped. Text longer than one Telegram message is sent as
// several consecutive messages.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	parts := SplitMessage(text, MaxMessageLength)
	for i, part := range parts {
		if err := c.send(ctx, chatID, part); err != nil {
			if len(parts) > 1 {
				return fmt.Errorf("part %d of %d: %w", i+1, len(parts), err)
			}
			return err
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      EscapeMarkdownV2(text),
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var out apiResponse
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		logrus.WithFields(logrus.Fields{
			"chat_id": chatID,
			"status":  resp.StatusCode,
			"body":    strings.TrimSpace(string(body)),
		}).Error("telegram: sendMessage rejected")
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, out.Description)
	}

	logrus.WithField("chat_id", chatID).Debug("telegram: message sent")
	return nil
}

// SplitMessage cuts text into parts of at most limit UTF-16 code units, the
// unit Telegram measures message length in. A part ends at the last line
// break that fits when there is one.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf16Len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for text != "" {
		units, cut, lastNewline := 0, len(text), -1
		for i, r := range text {
			n := utf16.RuneLen(r)
			if n < 0 {
				n = 1
			}
			if units+n > limit {
				cut = i
				break
			}
			units += n
			if r == '\n' {
				lastNewline = i
			}
		}
		if cut < len(text) && lastNewline > 0 {
			cut = lastNewline + 1
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(text)
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	return parts
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

var markdownV2Replacer = func() *strings.Replacer {
	const specials = "_*[]()~`>#+-=|{}.!"
	pairs := make([]string, 0, 2*len(specials)+2)
	pairs = append(pairs, `\`, `\\`)
	for _, r := range specials {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}()

// EscapeMarkdownV2 prefixes every MarkdownV2 special character, the
// backslash included, with a backslash so the text is shown literally.
func EscapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(text)
}
