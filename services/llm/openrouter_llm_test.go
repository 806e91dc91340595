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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenRouterClient_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	_, err := NewOpenRouterClient()
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "openrouter:") {
		t.Errorf("error should include 'openrouter:' prefix, got: %s", err.Error())
	}
}

func TestNewOpenRouterClient_DefaultModel(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("OPENROUTER_MODEL", "")

	client, err := NewOpenRouterClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.model != "google/gemini-2.5-flash-lite" {
		t.Errorf("model = %q, want default", client.model)
	}
}

func TestOpenRouterClient_Chat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", auth, "Bearer test-key")
		}

		var req openrouterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "google/gemini-2.5-flash-lite" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Errorf("messages = %d, want 2", len(req.Messages))
		}

		resp := openrouterResponse{
			ID: "gen-1",
			Choices: []openrouterChoice{
				{Message: openrouterMessage{Role: "assistant", Content: "the summary"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewOpenRouterClientWithConfig("test-key", "google/gemini-2.5-flash-lite", server.URL)
	out, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "summarize"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "the summary" {
		t.Errorf("output = %q", out)
	}
}

func TestOpenRouterClient_Chat_StripsFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openrouterResponse{
			Choices: []openrouterChoice{
				{Message: openrouterMessage{Role: "assistant", Content: "```json\n{\"a\":1}\n```"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewOpenRouterClientWithConfig("k", "m", server.URL)
	out, err := client.Generate(context.Background(), "parse", GenerationParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"a":1}` {
		t.Errorf("fences not stripped: %q", out)
	}
}

func TestOpenRouterClient_Chat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openrouterResponse{Error: &openrouterError{Code: 402, Message: "insufficient credits"}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewOpenRouterClientWithConfig("k", "m", server.URL)
	_, err := client.Generate(context.Background(), "x", GenerationParams{})
	if err == nil || !strings.Contains(err.Error(), "insufficient credits") {
		t.Errorf("expected API error surfaced, got: %v", err)
	}
}

func TestOpenRouterClient_Chat_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewOpenRouterClientWithConfig("k", "m", server.URL)
	_, err := client.Generate(context.Background(), "x", GenerationParams{})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("expected status error, got: %v", err)
	}
}

func TestOpenRouterClient_UnknownRoleMapsToUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openrouterRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Messages[0].Role != "user" {
			t.Errorf("unknown role should map to user, got %q", req.Messages[0].Role)
		}
		json.NewEncoder(w).Encode(openrouterResponse{
			Choices: []openrouterChoice{{Message: openrouterMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client := NewOpenRouterClientWithConfig("k", "m", server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "tool", Content: "x"}}, GenerationParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStripMarkdownFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain text", "plain text"},
		{"```\nwrapped\n```", "wrapped"},
		{"```json\n{\"x\":2}\n```", `{"x":2}`},
		{"  ```\nspaced\n```  ", "spaced"},
	}
	for _, tc := range cases {
		if got := StripMarkdownFences(tc.in); got != tc.want {
			t.Errorf("StripMarkdownFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
