// Package main is the kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/anaphora"
	"github.com/hyperjump/kotae/internal/cache"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/convo"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generator"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/router"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "query":
		runQuery()
	case "anchors":
		runAnchors()
	case "check":
		runCheck()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	// API keys come from the environment; a local .env is a convenience
	// for development and is optional.
	_ = godotenv.Load()

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	if cfg.Routing.WatchAnchors {
		reloader := router.NewReloader(cfg.Routing.AnchorsPath, components.Router, logger)
		if err := reloader.Start(reloadCtx); err != nil {
			logger.Warn("anchor watch disabled", zap.Error(err))
		} else {
			defer reloader.Stop()
		}
	}

	srv := server.NewServer(components.Pipeline, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.DataDir != "" {
		if err := components.CacheIndex.Save(cfg.Storage.DataDir); err != nil {
			logger.Warn("cache index save failed", zap.String("dir", cfg.Storage.DataDir), zap.Error(err))
		}
	}
	reloadCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	sessionID := fs.String("session", "", "session id (empty = new session)")
	skipCache := fs.Bool("skip-cache", false, "bypass the semantic cache")
	outputJSON := fs.Bool("json", false, "print the full result as JSON")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae query [flags] <question>")
		os.Exit(1)
	}
	question := ""
	for i, arg := range fs.Args() {
		if i > 0 {
			question += " "
		}
		question += arg
	}

	body, _ := json.Marshal(models.QueryRequest{
		Query:     question,
		SessionID: *sessionID,
		SkipCache: *skipCache,
	})
	resp, err := http.Post(*serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Query failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}

	var result models.ProcessResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if *outputJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}
	fmt.Println(result.Answer)
	fmt.Fprintf(os.Stderr, "[%s | session %s | %dms]\n", result.Outcome, result.SessionID, result.ElapsedMS)
}

// anchorDataset is the input to "kotae anchors build": labeled example
// phrases, not yet embedded.
type anchorDataset struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

func runAnchors() {
	if len(os.Args) < 3 || os.Args[2] != "build" {
		fmt.Println("Usage: kotae anchors build [flags] <dataset.json>")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("anchors build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outPath := fs.String("out", "", "output anchor file (default: routing.anchors_path from config)")
	_ = fs.Parse(os.Args[3:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae anchors build [flags] <dataset.json>")
		os.Exit(1)
	}
	datasetPath := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *outPath == "" {
		*outPath = cfg.Routing.AnchorsPath
	}

	data, err := os.ReadFile(datasetPath)
	if err != nil {
		fmt.Printf("Failed to read dataset: %v\n", err)
		os.Exit(1)
	}
	var dataset anchorDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		fmt.Printf("Failed to parse dataset: %v\n", err)
		os.Exit(1)
	}
	if len(dataset.Positive) == 0 {
		fmt.Println("Dataset has no positive examples")
		os.Exit(1)
	}

	embedder := newEmbedder(cfg, nil)
	defer embedder.Close()

	ctx := context.Background()
	set := &router.AnchorSet{Dimension: cfg.Embedding.Dimensions}
	posVecs, err := embedder.EmbedBatch(ctx, dataset.Positive)
	if err != nil {
		fmt.Printf("Embedding positive examples failed: %v\n", err)
		os.Exit(1)
	}
	for i, text := range dataset.Positive {
		set.Positive = append(set.Positive, router.Anchor{Text: text, Vector: posVecs[i]})
	}
	negVecs, err := embedder.EmbedBatch(ctx, dataset.Negative)
	if err != nil {
		fmt.Printf("Embedding negative examples failed: %v\n", err)
		os.Exit(1)
	}
	for i, text := range dataset.Negative {
		set.Negative = append(set.Negative, router.Anchor{Text: text, Vector: negVecs[i]})
	}

	if err := router.SaveAnchorFile(*outPath, set); err != nil {
		fmt.Printf("Failed to write anchor file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d positive and %d negative anchors to %s\n",
		len(set.Positive), len(set.Negative), *outPath)
}

func runCheck() {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	_ = godotenv.Load()

	failures := 0
	check := func(name string, err error) {
		if err != nil {
			fmt.Printf("FAIL  %s: %v\n", name, err)
			failures++
			return
		}
		fmt.Printf("ok    %s\n", name)
	}

	cfg, resolvedPath, err := loadConfig(*configPath)
	check("config ("+resolvedPath+")", err)
	if err != nil {
		os.Exit(1)
	}

	_, err = router.LoadAnchorFile(cfg.Routing.AnchorsPath)
	check("anchors ("+cfg.Routing.AnchorsPath+")", err)

	if _, err := os.Stat(cfg.Embedding.ModelPath); err != nil {
		fmt.Printf("warn  embedding model missing (%s), mock embedder will be used\n", cfg.Embedding.ModelPath)
	} else {
		fmt.Printf("ok    embedding model (%s)\n", cfg.Embedding.ModelPath)
	}

	switch cfg.Storage.CacheBackend {
	case "sqlite":
		backend, err := cache.NewSQLiteBackend(cfg.Storage.SQLitePath)
		check("sqlite backend ("+cfg.Storage.SQLitePath+")", err)
		if err == nil {
			_ = backend.Close()
		}
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		backend, err := cache.NewRedisBackend(ctx, cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, time.Duration(cfg.Cache.TTLHours)*time.Hour)
		cancel()
		check("redis backend ("+cfg.Storage.Redis.Addr+")", err)
		if err == nil {
			_ = backend.Close()
		}
	default:
		fmt.Println("ok    memory backend")
	}

	if apiKeyFor(cfg.Generator.Provider) == "" {
		fmt.Printf("warn  no API key for provider %q, generation will be disabled\n", cfg.Generator.Provider)
	} else {
		fmt.Printf("ok    %s API key present\n", cfg.Generator.Provider)
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

// Components holds initialized services.
type Components struct {
	Embedder   embedding.Embedder
	Router     *router.Router
	CacheIndex *vector.Index
	Backend    cache.Backend
	Pipeline   *pipeline.Pipeline
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Backend != nil {
		_ = c.Backend.Close()
	}
}

// newEmbedder returns the ONNX embedder when the model loads, otherwise
// the deterministic mock so the rest of the system stays usable.
func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		if logger != nil {
			logger.Warn("ONNX embedder unavailable, using mock embedder",
				zap.String("model_path", cfg.Embedding.ModelPath), zap.Error(err))
		}
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	return onnxEmbedder
}

func apiKeyFor(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	}
	return ""
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder := newEmbedder(cfg, logger)

	anchorSet, err := router.LoadAnchorFile(cfg.Routing.AnchorsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load anchors: %w", err)
	}
	rt, err := router.New(anchorSet, router.Thresholds{
		Accept:        cfg.Routing.Accept,
		Reject:        cfg.Routing.Reject,
		NegativeCheck: cfg.Routing.NegativeCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	var backend cache.Backend
	switch cfg.Storage.CacheBackend {
	case "sqlite":
		backend, err = cache.NewSQLiteBackend(cfg.Storage.SQLitePath)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		backend, err = cache.NewRedisBackend(ctx, cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, ttl)
		cancel()
	default:
		backend = cache.NewMemoryBackend()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache backend: %w", err)
	}

	cacheIndex, err := vector.New(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache index: %w", err)
	}
	if cfg.Storage.DataDir != "" {
		if loadErr := cacheIndex.Load(cfg.Storage.DataDir); loadErr != nil {
			logger.Warn("cache index load skipped",
				zap.String("dir", cfg.Storage.DataDir), zap.Error(loadErr))
		}
	}

	var textIndex *cache.TextIndex
	if cfg.Cache.TextIndex {
		textIndex, err = cache.NewTextIndex()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize text index: %w", err)
		}
	}

	semanticCache := cache.New(cacheIndex, backend, textIndex, cache.Options{
		HitThreshold: cfg.Cache.HitThreshold,
		TTL:          ttl,
		MaxSize:      cfg.Cache.MaxSize,
	}, logger)

	var gen generator.Generator
	apiKey := apiKeyFor(cfg.Generator.Provider)
	if apiKey == "" {
		logger.Warn("no API key configured, generation disabled",
			zap.String("provider", cfg.Generator.Provider))
		gen = generator.Disabled{}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		gen, err = generator.NewFantasyGenerator(ctx, generator.ProviderConfig{
			Provider: cfg.Generator.Provider,
			Model:    cfg.Generator.Model,
			BaseURL:  cfg.Generator.BaseURL,
			APIKey:   apiKey,
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		logger.Info("generator ready",
			zap.String("provider", cfg.Generator.Provider),
			zap.String("model", cfg.Generator.Model))
	}

	p := pipeline.New(pipeline.Options{
		Embedder:   embedder,
		Router:     rt,
		Resolver:   anaphora.New(cfg.Anaphora.Window),
		Sessions:   convo.NewSessionStore(cfg.Context.MaxTurns),
		Compressor: convo.NewCompressor(cfg.Context.MaxTokens, cfg.Context.MaxTurns),
		Cache:      semanticCache,
		Generator:  gen,
		Logger:     logger,
	})

	return &Components{
		Embedder:   embedder,
		Router:     rt,
		CacheIndex: cacheIndex,
		Backend:    backend,
		Pipeline:   p,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - semantic gateway for an animal encyclopedia assistant

Usage:
  kotae server [flags]                 Start the HTTP server
  kotae query [flags] <question>       Ask a question via a running server
  kotae anchors build [flags] <file>   Embed a labeled dataset into an anchor file
  kotae check [flags]                  Verify config, anchors, model, and backends
  kotae status [flags]                 Show server stats and configuration
  kotae version                        Show version
  kotae help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Query Flags:
  --server string    Server URL (default: http://localhost:8080)
  --session string   Session id to continue a conversation
  --skip-cache       Bypass the semantic cache for this query
  --json             Print the full result as JSON

Anchors Flags:
  --config string    Config file path
  --out string       Output anchor file (default: routing.anchors_path)

Examples:
  kotae server
  kotae query "What do tigers eat?"
  kotae query --session 4f7c "What does it eat in winter?"
  kotae anchors build anchors-dataset.json
  kotae check`)
}
