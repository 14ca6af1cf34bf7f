package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"graphmem-backend/infrastructure/config"
	pkgerrors "graphmem-backend/pkg/errors"
)

// Client implements ports.TextGenerator against the Ollama HTTP API
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	logger     *zap.Logger
}

// Ollama API request structure
type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// NewClient creates a client for the configured Ollama backend
func NewClient(cfg config.OllamaConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		logger:     logger,
	}
}

// Generate produces a non-streaming completion for the prompt
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": 0.7,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", pkgerrors.NewGenerator("failed to marshal generate request", err)
	}

	// NewRequestWithContext so cancellation propagates to the backend call
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return "", pkgerrors.NewGenerator("failed to build generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.NewGenerator("generation backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", pkgerrors.NewGenerator(
			fmt.Sprintf("generation backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			nil,
		)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", pkgerrors.NewGenerator("failed to decode generate response", err)
	}

	text := strings.TrimSpace(parsed.Response)
	if text == "" {
		return "", pkgerrors.NewGenerator("generation backend returned an empty response", nil)
	}

	c.logger.Debug("generated completion",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("response_len", len(text)),
	)

	return text, nil
}
