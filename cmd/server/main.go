// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the dispatch core server. It
// exposes the query dispatcher over HTTP for the voice pipeline, the
// dashboard, and the CLI test harness.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/SachdevaAI/jarvis-core/internal/api"
	"github.com/SachdevaAI/jarvis-core/internal/cache"
	"github.com/SachdevaAI/jarvis-core/internal/classifier"
	"github.com/SachdevaAI/jarvis-core/internal/config"
	"github.com/SachdevaAI/jarvis-core/internal/dispatcher"
	"github.com/SachdevaAI/jarvis-core/internal/fallback"
	"github.com/SachdevaAI/jarvis-core/internal/logging"
	"github.com/SachdevaAI/jarvis-core/internal/metrics"
	"github.com/SachdevaAI/jarvis-core/internal/registry"
)

func main() {
	logging.Setup()

	configPath := flag.String("config", "", "path to the YAML configuration file")
	logDir := flag.String("log-dir", "logs", "directory for rotating log files")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to load .env file: %v", err)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err := logging.ConfigureOutput(cfg.LoggingToFile, *logDir); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	mgr := config.NewManager(cfg)
	if *configPath != "" {
		go func() {
			if err := mgr.Watch(context.Background(), *configPath); err != nil {
				log.Warnf("Configuration hot reload disabled: %v", err)
			}
		}()
	}

	reg := registry.New()
	seedTools(reg)
	reg.Seal()

	engine := dispatcher.New(
		mgr,
		reg,
		classifier.New(),
		cache.New(cfg.CacheSize),
		metrics.New(),
		buildFallback(),
	)

	if err := api.Run(api.NewHandler(engine), cfg.Host, cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildFallback selects the fallback provider from the environment. Without
// an API key the server still runs, with fallback routing reporting that no
// reasoner is available.
func buildFallback() fallback.Provider {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		model := os.Getenv("JARVIS_FALLBACK_MODEL")
		log.Info("Fallback reasoner: anthropic")
		return fallback.NewAnthropic(key, model)
	}
	log.Warn("ANTHROPIC_API_KEY not set, fallback reasoning is unavailable")
	return nil
}

// seedTools registers the built-in demo capabilities. Real deployments
// register their own toolset here; the handlers below stay deliberately
// trivial.
func seedTools(reg *registry.Registry) {
	tools := []*registry.ToolDescriptor{
		{
			Name:        "get_time",
			Description: "Reports the current time and date",
			Category:    "system",
			Keywords:    []string{"time", "date", "clock", "samay", "aaj"},
			Priority:    9,
			Handler: func(ctx context.Context, inv registry.Invocation) (string, error) {
				now := time.Now()
				return fmt.Sprintf("The current time is %s on %s.",
					now.Format("3:04 PM"), now.Format("Monday, January 2, 2006")), nil
			},
		},
		{
			Name:        "system_info",
			Description: "Reports host platform details",
			Category:    "system",
			Keywords:    []string{"system", "cpu", "memory", "platform", "system info"},
			Priority:    7,
			Handler: func(ctx context.Context, inv registry.Invocation) (string, error) {
				return fmt.Sprintf("Running on %s/%s with %d CPUs and Go runtime %s.",
					runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version()), nil
			},
		},
		{
			Name:        "get_weather",
			Description: "Reports the weather (stub, no live data source wired)",
			Category:    "information",
			Keywords:    []string{"weather", "temperature", "forecast", "mausam"},
			Priority:    8,
			Handler: func(ctx context.Context, inv registry.Invocation) (string, error) {
				return "Weather lookup is not connected to a live data source yet.", nil
			},
		},
	}

	for _, tool := range tools {
		if err := reg.Register(tool); err != nil {
			log.Fatalf("Failed to register tool %s: %v", tool.Name, err)
		}
	}
}
