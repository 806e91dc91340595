// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm holds the LLM formatting boundary: the client interface,
// the OpenRouter implementation, and the prompt builder that turns
// aggregated worklog data into an analysis request.
package llm

import "context"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams tunes a single generation call. Nil fields use the
// provider defaults.
type GenerationParams struct {
	Temperature   *float32
	MaxTokens     *int
	ModelOverride string
}

// Client is the minimal generation surface the worklog service needs.
//
// Thread Safety: implementations must be safe for concurrent use.
type Client interface {
	// Generate sends a single-prompt completion request.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat sends a multi-turn conversation.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}
