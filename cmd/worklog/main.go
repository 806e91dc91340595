// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command worklog starts the worklog assistant API server.
//
// The server answers free-text questions about employee work activity:
// it resolves the employee name, timeframe, and intent from the
// question, pulls records from the live tracking backend (falling back
// to a synthetic dataset when the backend is unreachable), aggregates
// them into per-employee summaries, and optionally formats a prose
// answer through OpenRouter.
//
// Usage:
//
//	go run ./cmd/worklog
//	go run ./cmd/worklog -port 9090
//
// With a live backend:
//
//	WORKLOG_BACKEND_URL=https://tracker.example.com/api \
//	WORKLOG_BACKEND_USERNAME=svc WORKLOG_BACKEND_PASSWORD=secret \
//	go run ./cmd/worklog
//
// With LLM formatting:
//
//	OPENROUTER_API_KEY=sk-or-... go run ./cmd/worklog
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/worklog/health
//
//	# Ask a question
//	curl -X POST http://localhost:8080/v1/worklog/query \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "What did Ivan do in May 2024?"}'
//
//	# Force the synthetic dataset
//	curl -X POST http://localhost:8080/v1/worklog/mode \
//	  -H "Content-Type: application/json" \
//	  -d '{"mode": "synthetic"}'
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/itplan/worklog-assistant/services/llm"
	"github.com/itplan/worklog-assistant/services/worklog"
	"github.com/itplan/worklog-assistant/services/worklog/config"
	"github.com/itplan/worklog-assistant/services/worklog/source"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := slog.Default()
	ctx := context.Background()

	// W3C TraceContext propagator so trace context flows from incoming
	// HTTP headers through all handlers and the record-source spans.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tp := setupTracing(logger)

	intents, err := config.GetIntentConfig(ctx)
	if err != nil {
		logger.Error("Failed to load intent config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	src := buildRecordSource(ctx, logger)
	formatter := buildFormatter(logger)

	svc := worklog.NewService(worklog.ServiceConfig{
		Source:               src,
		Intents:              intents,
		Formatter:            formatter,
		FormatterLimitPerMin: envInt("WORKLOG_FORMATTER_RPM", 0),
		Logger:               logger,
	})
	handlers := worklog.NewHandlers(svc)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("worklog-assistant"))
	if *debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register routes under /v1/worklog
	v1 := router.Group("/v1")
	worklog.RegisterRoutes(v1, handlers)

	printBanner(*port, src.Name(), formatter != nil)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down worklog assistant server")
		if tp != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to flush tracer provider", slog.String("error", err.Error()))
			}
		}
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	logger.Info("Starting worklog assistant server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupTracing installs a stdout span exporter when WORKLOG_TRACE_STDOUT
// is set. Without it the global no-op provider stays in place and the
// instrumentation costs nothing.
func setupTracing(logger *slog.Logger) *sdktrace.TracerProvider {
	if os.Getenv("WORKLOG_TRACE_STDOUT") == "" {
		return nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		logger.Warn("Failed to create stdout trace exporter", slog.String("error", err.Error()))
		return nil
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	logger.Info("Stdout trace exporter enabled")
	return tp
}

// buildRecordSource wires the live backend behind the synthetic
// fallback. Without WORKLOG_BACKEND_URL the live source points at
// nothing and every query serves synthetic data, which is the intended
// demo configuration.
func buildRecordSource(ctx context.Context, logger *slog.Logger) source.RecordSource {
	liveCfg := source.LiveConfig{
		BaseURL:              os.Getenv("WORKLOG_BACKEND_URL"),
		Username:             os.Getenv("WORKLOG_BACKEND_USERNAME"),
		Password:             os.Getenv("WORKLOG_BACKEND_PASSWORD"),
		SupportsOverdueCheck: os.Getenv("WORKLOG_BACKEND_OVERDUE") != "",
	}
	if secs := envInt("WORKLOG_BACKEND_TIMEOUT_SECONDS", 0); secs > 0 {
		liveCfg.Timeout = time.Duration(secs) * time.Second
	}

	live := source.NewLiveSource(liveCfg)
	synthetic := source.NewSyntheticSource(time.Now())
	fallback := source.NewFallbackSource(ctx, live, synthetic, logger)
	logger.Info("Record source ready",
		slog.String("mode", fallback.Mode()),
		slog.Bool("live_configured", liveCfg.BaseURL != ""),
	)
	return fallback
}

// buildFormatter creates the OpenRouter client when an API key is
// present. The pipeline degrades to structured-data-only responses
// without it.
func buildFormatter(logger *slog.Logger) llm.Client {
	client, err := llm.NewOpenRouterClient()
	if err != nil {
		logger.Info("LLM formatting disabled", slog.String("reason", err.Error()))
		return nil
	}
	logger.Info("LLM formatting enabled via OpenRouter")
	return client
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func printBanner(port int, mode string, formatterEnabled bool) {
	formatterStatus := "DISABLED (set OPENROUTER_API_KEY to enable)"
	if formatterEnabled {
		formatterStatus = "ENABLED (OpenRouter connected)"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                   WORKLOG ASSISTANT SERVER                        ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Free-text questions about employee work activity.                ║
║  Backend mode: %-50s ║
║  LLM formatting: %-48s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/worklog/health            │  ║
║  │                                                             │  ║
║  │ # Ask a question                                            │  ║
║  │ curl -X POST http://localhost:%d/v1/worklog/query \   │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"query": "What did Ivan do in May 2024?"}'           │  ║
║  │                                                             │  ║
║  │ # Backend mode                                              │  ║
║  │ curl http://localhost:%d/v1/worklog/status            │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── POST /v1/worklog/query   resolve and aggregate a question    ║
║  ├── POST /v1/worklog/mode    sticky backend mode switch          ║
║  ├── GET  /v1/worklog/status  backend mode and availability       ║
║  ├── GET  /v1/worklog/health  health check                        ║
║  └── GET  /metrics            Prometheus metrics                  ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, mode, formatterStatus, port, port, port)
}
