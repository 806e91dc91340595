// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// =============================================================================
// OpenRouter Wire Types
// =============================================================================

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"

type openrouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openrouterMessage `json:"messages"`
	Temperature *float32            `json:"temperature,omitempty"`
	MaxTokens   *int                `json:"max_tokens,omitempty"`
}

type openrouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openrouterResponse struct {
	ID      string             `json:"id"`
	Choices []openrouterChoice `json:"choices"`
	Error   *openrouterError   `json:"error,omitempty"`
}

type openrouterChoice struct {
	Index        int               `json:"index"`
	Message      openrouterMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type openrouterError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// Client Implementation
// =============================================================================

// OpenRouterClient implements Client against the OpenRouter chat
// completions API using raw net/http.
//
// Description:
//
//	OpenRouter fronts many upstream models behind one OpenAI-shaped
//	API. The client sends the Bearer credential plus the optional
//	HTTP-Referer and X-Title attribution headers OpenRouter uses for
//	analytics.
//
// Thread Safety: OpenRouterClient is safe for concurrent use.
type OpenRouterClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	referer    string
	title      string
}

// NewOpenRouterClientWithConfig creates an OpenRouterClient with
// explicit configuration. Useful for testing with mock servers.
func NewOpenRouterClientWithConfig(apiKey, model, baseURL string) *OpenRouterClient {
	return &OpenRouterClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// NewOpenRouterClient creates a client from environment variables.
//
// Description:
//
//	Reads OPENROUTER_API_KEY and OPENROUTER_MODEL from the
//	environment. Defaults to "google/gemini-2.5-flash-lite" when
//	OPENROUTER_MODEL is not set. OPENROUTER_REFERER and
//	OPENROUTER_TITLE feed the attribution headers when present.
//
// Outputs:
//   - *OpenRouterClient: The configured client.
//   - error: Non-nil if OPENROUTER_API_KEY is missing.
func NewOpenRouterClient() (*OpenRouterClient, error) {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	model := os.Getenv("OPENROUTER_MODEL")
	if apiKey == "" {
		slog.Warn("OpenRouter API key is empty. OpenRouter client will not function.")
		return nil, fmt.Errorf("openrouter: API key is missing (OPENROUTER_API_KEY)")
	}
	if model == "" {
		model = "google/gemini-2.5-flash-lite"
		slog.Warn("OPENROUTER_MODEL not set, defaulting to google/gemini-2.5-flash-lite")
	}
	slog.Info("Initializing OpenRouter client", "model", model)
	return &OpenRouterClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultOpenRouterBaseURL,
		referer:    os.Getenv("OPENROUTER_REFERER"),
		title:      os.Getenv("OPENROUTER_TITLE"),
	}, nil
}

// Generate implements the Client interface.
func (o *OpenRouterClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return o.Chat(ctx, []Message{{Role: "user", Content: prompt}}, params)
}

// Chat implements Client.Chat using the OpenRouter completions API.
func (o *OpenRouterClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	model := o.model
	if params.ModelOverride != "" {
		model = params.ModelOverride
	}
	slog.Debug("Chat via OpenRouter", slog.String("model", model), slog.Int("messages", len(messages)))

	wireMessages := make([]openrouterMessage, 0, len(messages))
	for _, msg := range messages {
		role := msg.Role
		switch role {
		case "system", "user", "assistant":
		default:
			slog.Warn("OpenRouter: unknown message role, mapping to user",
				slog.String("unknown_role", role))
			role = "user"
		}
		wireMessages = append(wireMessages, openrouterMessage{Role: role, Content: msg.Content})
	}

	reqPayload := openrouterRequest{
		Model:       model,
		Messages:    wireMessages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}
	body, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("openrouter: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openrouter: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if o.referer != "" {
		req.Header.Set("HTTP-Referer", o.referer)
	}
	if o.title != "" {
		req.Header.Set("X-Title", o.title)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openrouter: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openrouter: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed openrouterResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openrouter: API error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openrouter: empty choices in response")
	}
	return StripMarkdownFences(parsed.Choices[0].Message.Content), nil
}

// StripMarkdownFences removes the ```lang fences some models wrap
// around otherwise plain output.
func StripMarkdownFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop a language tag on the opening fence.
	if idx := strings.Index(trimmed, "\n"); idx >= 0 && !strings.ContainsAny(trimmed[:idx], " \t") {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
