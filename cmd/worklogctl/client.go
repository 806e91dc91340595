// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
	"github.com/itplan/worklog-assistant/services/worklog/source"
)

// queryResponse mirrors the server's QueryResponse body.
type queryResponse struct {
	RequestID string                  `json:"request_id"`
	Answer    string                  `json:"answer,omitempty"`
	Chunks    []string                `json:"chunks,omitempty"`
	Data      datatypes.ProcessedData `json:"data"`
}

// serverClient is a thin HTTP client for the worklog assistant API.
type serverClient struct {
	baseURL string
	http    *http.Client
}

func newServerClient() *serverClient {
	return &serverClient{
		baseURL: getServerBaseURL(),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// getServerBaseURL returns the server address from WORKLOG_SERVER_URL,
// defaulting to the local development port.
func getServerBaseURL() string {
	if url := os.Getenv("WORKLOG_SERVER_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return "http://localhost:8080"
}

// Query sends a free-text question and returns the decoded response
// along with the raw body for --raw output.
func (c *serverClient) Query(question string) (*queryResponse, []byte, error) {
	body, err := json.Marshal(map[string]string{"query": question})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode request: %w", err)
	}

	raw, err := c.post("/v1/worklog/query", body)
	if err != nil {
		return nil, nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to parse server response: %w", err)
	}
	return &resp, raw, nil
}

// SetMode switches the server's backend mode.
func (c *serverClient) SetMode(mode string) (*source.SourceStatus, error) {
	body, err := json.Marshal(map[string]string{"mode": mode})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	raw, err := c.post("/v1/worklog/mode", body)
	if err != nil {
		return nil, err
	}

	var status source.SourceStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to parse server response: %w", err)
	}
	return &status, nil
}

// Status fetches the current backend mode and availability.
func (c *serverClient) Status() (*source.SourceStatus, error) {
	resp, err := c.http.Get(c.baseURL + "/v1/worklog/status")
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read server response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(raw))
	}

	var status source.SourceStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to parse server response: %w", err)
	}
	return &status, nil
}

func (c *serverClient) post(path string, body []byte) ([]byte, error) {
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read server response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
