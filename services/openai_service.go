package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pricescrub/pricescrub-api/config"
)

// ============================================================================
// OPENAI SERVICE - LLM completion provider for listing enrichment
// The model is used for market-value estimation only; all arithmetic the
// caller can verify is recomputed after the response returns.
// ============================================================================

type OpenAIService struct {
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func NewOpenAIService(cfg *config.Config) *OpenAIService {
	return &OpenAIService{
		apiKey:     strings.TrimSpace(cfg.OpenAIAPIKey),
		model:      cfg.OpenAIModel,
		maxTokens:  cfg.OpenAIMaxTokens,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Configured reports whether a credential is present. With no credential the
// enrichment stage short-circuits instead of attempting a call.
func (s *OpenAIService) Configured() bool { return s.apiKey != "" }

// CompleteJSON sends a system/user prompt pair in JSON-object response mode
// and returns the raw completion text. The caller parses it defensively; the
// text is expected, not guaranteed, to contain JSON.
func (s *OpenAIService) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	requestBody := openAIRequest{
		Model: s.model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0,
		MaxTokens:      s.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		"POST",
		"https://api.openai.com/v1/chat/completions",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var aiResp openAIResponse
	if err := json.Unmarshal(body, &aiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(aiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	log.Printf("[OpenAI] Model: %s | Tokens: In %d / Out %d | Cost: $%.5f",
		aiResp.Model,
		aiResp.Usage.PromptTokens,
		aiResp.Usage.CompletionTokens,
		s.EstimateCost(aiResp.Usage.PromptTokens, aiResp.Usage.CompletionTokens),
	)

	return aiResp.Choices[0].Message.Content, nil
}

// Pricing (approximate for gpt-4.1-mini)
const (
	inputTokenPrice  = 0.0000004 // $0.40 per million
	outputTokenPrice = 0.0000016 // $1.60 per million
)

func (s *OpenAIService) EstimateCost(inputTokens int, outputTokens int) float64 {
	return float64(inputTokens)*inputTokenPrice + float64(outputTokens)*outputTokenPrice
}
