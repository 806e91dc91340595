// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package worklog

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
	"github.com/itplan/worklog-assistant/services/worklog/source"
)

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// QueryRequest is the body of POST /v1/worklog/query.
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// QueryResponse is the body of a successful query. Answer is capped to
// one chat-transport message; Chunks carry the full text split at the
// same cap for transports that can send several.
type QueryResponse struct {
	RequestID string                  `json:"request_id"`
	Answer    string                  `json:"answer,omitempty"`
	Chunks    []string                `json:"chunks,omitempty"`
	Data      datatypes.ProcessedData `json:"data"`
}

// ModeRequest is the body of POST /v1/worklog/mode.
type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// Handlers exposes the Service over gin.
type Handlers struct {
	service *Service
}

// NewHandlers creates the handler set.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleQuery handles POST /v1/worklog/query.
//
// Description:
//
//	Runs the full pipeline for one free-text question. The response
//	always carries the aggregation artifact; the formatted answer and
//	its transport chunks are present when the LLM boundary produced
//	one.
//
// Response:
//
//	200 OK: QueryResponse
//	400 Bad Request: Missing or empty query
//	503 Service Unavailable: Employee directory could not be loaded
func (h *Handlers) HandleQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleQuery")

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "query field is required",
			Code:  "MISSING_QUERY",
		})
		return
	}

	answer, data, err := h.service.AnswerQuery(c.Request.Context(), req.Query)
	if err != nil {
		if errors.Is(err, ErrEmployeeDirectory) {
			logger.Error("employee directory unavailable", "error", err.Error())
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "employee directory unavailable",
				Code:  "DIRECTORY_UNAVAILABLE",
			})
			return
		}
		logger.Error("query failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "query processing failed",
			Code:  "INTERNAL",
		})
		return
	}

	resp := QueryResponse{RequestID: requestID, Data: data}
	if answer != "" {
		resp.Answer = TruncateMessage(answer)
		resp.Chunks = SplitMessage(answer)
	}
	c.JSON(http.StatusOK, resp)
}

// HandleMode handles POST /v1/worklog/mode.
//
// Description:
//
//	Operator surface for the sticky backend switch. "synthetic"
//	forces the stand-in dataset; "live" re-probes the live backend
//	and enables it only when the probe succeeds.
//
// Response:
//
//	200 OK: source.SourceStatus
//	400 Bad Request: Unknown mode value
//	501 Not Implemented: The configured source has no mode switch
func (h *Handlers) HandleMode(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleMode")

	ms, ok := h.service.ModeSwitcher()
	if !ok {
		c.JSON(http.StatusNotImplemented, ErrorResponse{
			Error: "the configured record source has no mode switch",
			Code:  "MODE_SWITCH_UNSUPPORTED",
		})
		return
	}

	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "mode field is required",
			Code:  "MISSING_MODE",
		})
		return
	}

	var status source.SourceStatus
	switch req.Mode {
	case source.ModeSynthetic:
		status = ms.SwitchToSynthetic()
	case source.ModeLive:
		status = ms.SwitchToLive(c.Request.Context())
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "mode must be \"live\" or \"synthetic\"",
			Code:  "UNKNOWN_MODE",
		})
		return
	}

	logger.Info("backend mode switch", "requested", req.Mode, "effective", status.Mode)
	c.JSON(http.StatusOK, status)
}

// HandleStatus handles GET /v1/worklog/status.
func (h *Handlers) HandleStatus(c *gin.Context) {
	if ms, ok := h.service.ModeSwitcher(); ok {
		c.JSON(http.StatusOK, ms.Status())
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": h.service.src.Name()})
}

// HandleHealth handles GET /v1/worklog/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
