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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all worklog routes with the router.
//
// Description:
//
//	Registers the /v1/worklog/* endpoints with the given Gin router
//	group. The group should already have any required middleware
//	applied.
//
// Endpoints:
//
//	POST /v1/worklog/query - Resolve and aggregate one question
//	POST /v1/worklog/mode - Sticky backend mode switch
//	GET  /v1/worklog/status - Current backend mode and availability
//	GET  /v1/worklog/health - Health check
//
// Example:
//
//	service := worklog.NewService(cfg)
//	handlers := worklog.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	worklog.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	wl := rg.Group("/worklog")
	{
		wl.POST("/query", handlers.HandleQuery)
		wl.POST("/mode", handlers.HandleMode)
		wl.GET("/status", handlers.HandleStatus)
		wl.GET("/health", handlers.HandleHealth)
	}
}
