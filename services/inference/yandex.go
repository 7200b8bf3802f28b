package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	DefaultCompletionURL   = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"
	DefaultEmbeddingURL    = "https://llm.api.cloud.yandex.net/foundationModels/v1/textEmbedding"
	DefaultCompletionModel = "yandexgpt-lite"
	DefaultEmbeddingModel  = "text-search-query/latest"

	maxErrorBody = 1024
)

// YandexConfig configures the Yandex Foundation Models provider.
type YandexConfig struct {
	CompletionURL   string
	EmbeddingURL    string
	FolderID        string
	APIKey          string
	AuthScheme      string // "Bearer" (IAM token) or "Api-Key"
	CompletionModel string
	EmbeddingModel  string
	Temperature     float64
	MaxTokens       int
	HTTPClient      *http.Client
}

// YandexProvider talks to the Yandex Foundation Models REST API.
type YandexProvider struct {
	cfg  YandexConfig
	http *http.Client
}

// NewYandexProvider validates cfg and fills defaults.
func NewYandexProvider(cfg YandexConfig) (*YandexProvider, error) {
	if cfg.FolderID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("yandex folder id or api key is not set")
	}
	if cfg.CompletionURL == "" {
		cfg.CompletionURL = DefaultCompletionURL
	}
	if cfg.EmbeddingURL == "" {
		cfg.EmbeddingURL = DefaultEmbeddingURL
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = DefaultCompletionModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &YandexProvider{cfg: cfg, http: client}, nil
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type completionMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type completionRequest struct {
	ModelURI          string              `json:"modelUri"`
	CompletionOptions completionOptions   `json:"completionOptions"`
	Messages          []completionMessage `json:"messages"`
}

type completionResponse struct {
	Result *struct {
		Alternatives []struct {
			Message completionMessage `json:"message"`
			Status  string            `json:"status"`
		} `json:"alternatives"`
	} `json:"result"`
}

type embeddingRequest struct {
	ModelURI string `json:"modelUri"`
	Text     string `json:"text"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Complete sends messages to the completion endpoint and returns the text of
// the first alternative.
func (p *YandexProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	req := completionRequest{
		ModelURI: fmt.Sprintf("gpt://%s/%s", p.cfg.FolderID, p.cfg.CompletionModel),
		CompletionOptions: completionOptions{
			Stream:      false,
			Temperature: p.cfg.Temperature,
			MaxTokens:   p.cfg.MaxTokens,
		},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, completionMessage{Role: m.Role, Text: m.Text})
	}

	var resp completionResponse
	if err := p.post(ctx, p.cfg.CompletionURL, req, &resp); err != nil {
		return "", err
	}
	if resp.Result == nil || len(resp.Result.Alternatives) == 0 {
		return "", errors.New("completion response has no alternatives")
	}
	return resp.Result.Alternatives[0].Message.Text, nil
}

// Embed requests the embedding of text.
func (p *YandexProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	req := embeddingRequest{
		ModelURI: fmt.Sprintf("emb://%s/%s", p.cfg.FolderID, p.cfg.EmbeddingModel),
		Text:     text,
	}
	var resp embeddingResponse
	if err := p.post(ctx, p.cfg.EmbeddingURL, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	logrus.WithField("embedding_length", len(resp.Embedding)).Debug("inference: embedding received")
	return resp.Embedding, nil
}

func (p *YandexProvider) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", p.cfg.AuthScheme+" "+p.cfg.APIKey)
	req.Header.Set("x-folder-id", p.cfg.FolderID)

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logrus.WithFields(logrus.Fields{
			"url":    url,
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(snippet)),
		}).Error("inference: provider returned error status")
		return fmt.Errorf("provider status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
