// Package main is the entry point for the healthchat API server.
//
// main stays minimal:
//  1. load configuration (.env + environment)
//  2. build the logger
//  3. open the storage backend and the inference client
//  4. hand everything to internal/server and block
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/sakif/healthchat/internal/config"
	"github.com/sakif/healthchat/internal/inference"
	"github.com/sakif/healthchat/internal/server"
	"github.com/sakif/healthchat/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	store, err := server.OpenStore(context.Background(), cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The chat endpoint is optional: without a model server the API still
	// serves accounts and sessions, and /api/chat answers 503.
	var gen service.Generator
	if cfg.Inference.URL == "" {
		logger.Warn("INFERENCE_URL not set, /api/chat is disabled")
	} else {
		client, err := inference.NewClient(cfg.Inference.URL, inference.WithTimeout(cfg.Inference.Timeout))
		if err != nil {
			logger.Error("invalid inference configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		gen = client
	}

	srv := server.New(cfg, store, gen, logger)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel) // validated by config.Load
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
