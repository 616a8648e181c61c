// Package ollama provides an answer generator backed by Ollama's generate API.
package ollama

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
	// DefaultURL is the default Ollama server URL.
	DefaultURL = "http://localhost:11434"

	// DefaultModel is the default generation model.
	DefaultModel = "llama3.2"
)

// OllamaGenerator implements answer.Generator using a local Ollama server.
type OllamaGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the Ollama generator.
type Config struct {
	// URL is the Ollama server URL. Defaults to DefaultURL if empty.
	URL string

	// Model is the generation model. Defaults to DefaultModel if empty.
	Model string
}

// NewOllamaGenerator creates a new Ollama answer generator.
func NewOllamaGenerator(c Config, logger *zap.Logger) *OllamaGenerator {
	baseURL := c.URL
	if baseURL == "" {
		baseURL = DefaultURL
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		logger: logger,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Answer synthesizes a grounded answer from the matches.
func (g *OllamaGenerator) Answer(ctx context.Context, question string, matches []retrieval.Match) (string, error) {
	reqBody := generateRequest{
		Model:  g.model,
		Prompt: answer.BuildPrompt(question, matches),
		Stream: false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling ollama: %v", answer.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama returned status %d: %s", answer.ErrGeneration, resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}

	g.logger.Debug("generated answer",
		zap.String("model", g.model),
		zap.Int("matches", len(matches)),
	)

	return genResp.Response, nil
}

// Close releases resources held by the generator.
func (g *OllamaGenerator) Close() error {
	return nil
}

var _ answer.Generator = (*OllamaGenerator)(nil)
