// Package openai provides an answer generator for OpenAI-compatible chat
// completion APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/answer"
	"github.com/quarrylabs/quarry/pkg/retrieval"
)

const (
	// DefaultURL is the default OpenAI API base URL.
	DefaultURL = "https://api.openai.com"

	// DefaultModel is the default chat model.
	DefaultModel = "gpt-4o-mini"
)

// OpenAIGenerator implements answer.Generator against any endpoint speaking
// the OpenAI chat completions protocol.
type OpenAIGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the OpenAI generator.
type Config struct {
	// URL is the API base URL. Defaults to DefaultURL if empty.
	URL string

	// APIKey authenticates requests. Required for the hosted API.
	APIKey string

	// Model is the chat model. Defaults to DefaultModel if empty.
	Model string
}

// NewOpenAIGenerator creates a new OpenAI-compatible answer generator.
func NewOpenAIGenerator(c Config, logger *zap.Logger) *OpenAIGenerator {
	baseURL := c.URL
	if baseURL == "" {
		baseURL = DefaultURL
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIGenerator{
		baseURL: baseURL,
		apiKey:  c.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Answer synthesizes a grounded answer from the matches.
func (g *OpenAIGenerator) Answer(ctx context.Context, question string, matches []retrieval.Match) (string, error) {
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "user", Content: answer.BuildPrompt(question, matches)},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/v1/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling chat API: %v", answer.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: chat API returned status %d: %s", answer.ErrGeneration, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat API returned no choices", answer.ErrGeneration)
	}

	g.logger.Debug("generated answer",
		zap.String("model", g.model),
		zap.Int("matches", len(matches)),
	)

	return chatResp.Choices[0].Message.Content, nil
}

// Close releases resources held by the generator.
func (g *OpenAIGenerator) Close() error {
	return nil
}

var _ answer.Generator = (*OpenAIGenerator)(nil)
