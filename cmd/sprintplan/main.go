// Package main provides the sprintplan binary entry point.
// Sprintplan turns meeting transcripts into structured sprint plans and
// runs a multi-stage analysis chain over submitted task batches.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/novahq/sprintplan/llm/providers"

	"github.com/novahq/sprintplan/agents"
	"github.com/novahq/sprintplan/config"
	"github.com/novahq/sprintplan/llm"
	"github.com/novahq/sprintplan/model"
	"github.com/novahq/sprintplan/planning"
	"github.com/novahq/sprintplan/repocontext"
	"github.com/novahq/sprintplan/server"
	"github.com/novahq/sprintplan/storage"
	"github.com/novahq/sprintplan/transcribe"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sprintplan"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		addr     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "sprintplan",
		Short: "Meeting-to-sprint-plan service",
		Long: `Sprintplan is an HTTP service that turns planning meetings into
structured sprint plans.

It provides:
- LLM-backed plan generation from meeting transcripts
- GitHub repository context gathering for grounded plans
- A heuristic agent chain for task estimation and assignment
- Optional audio transcription on the analyze endpoint

Configuration is layered: built-in defaults, then the user config
(~/.config/sprintplan/config.yaml), then a project sprintplan.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, logLevel)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(addr, logLevel string) error {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}

	clientOpts := []llm.ClientOption{
		llm.WithLogger(logger),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}),
	}

	// The audit trail is optional; a missing NATS server disables it rather
	// than blocking startup.
	if cfg.Audit.NATSURL != "" {
		nc, err := nats.Connect(cfg.Audit.NATSURL)
		if err != nil {
			logger.Warn("NATS unavailable, call auditing disabled",
				"url", cfg.Audit.NATSURL, "error", err)
		} else {
			defer nc.Close()
			callStore, err := llm.NewCallStore(nc,
				llm.WithSubject(cfg.Audit.Subject),
				llm.WithStoreLogger(logger))
			if err != nil {
				logger.Warn("Call store setup failed, call auditing disabled", "error", err)
			} else {
				clientOpts = append(clientOpts, llm.WithCallStore(callStore))
				logger.Info("Call auditing enabled", "subject", cfg.Audit.Subject)
			}
		}
	}

	client := llm.NewClient(registry, clientOpts...)

	searcher := repocontext.NewSearcher(
		repocontext.WithToken(cfg.GitHub.Token),
		repocontext.WithAPIBaseURL(cfg.GitHub.APIBaseURL),
		repocontext.WithSearcherLogger(logger))
	enricher := repocontext.NewEnricher(repocontext.WithEnricherLogger(logger))

	pipeline := planning.NewPipeline(client,
		planning.WithGatherer(searcher),
		planning.WithIssueEnricher(enricher),
		planning.WithTemperature(cfg.Model.Temperature),
		planning.WithMaxTokens(cfg.Model.MaxTokens),
		planning.WithPipelineLogger(logger))

	store, err := storage.NewStore(cfg.Server.OutputDir)
	if err != nil {
		return fmt.Errorf("open output store: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service := planning.NewService(planning.NewRepository(), pipeline,
		planning.WithResponseStore(responseStore{store}),
		planning.WithMetrics(planning.NewMetrics(promRegistry)),
		planning.WithServiceLogger(logger))

	orchestrator := agents.NewOrchestrator(
		agents.WithCompleter(client),
		agents.WithTeam(cfg.Agents.Roster, cfg.Agents.SprintCapacityHours),
		agents.WithOrchestratorLogger(logger))

	var providers []transcribe.Provider
	if cfg.Transcribe.WhisperURL != "" {
		providers = append(providers,
			transcribe.NewWhisperProvider(cfg.Transcribe.WhisperURL, cfg.Transcribe.APIKey))
	}
	chain := transcribe.NewChain(providers, transcribe.WithChainLogger(logger))

	srv := server.New(service,
		server.WithOrchestrator(orchestrator),
		server.WithTranscriber(chain),
		server.WithMetricsGatherer(promRegistry),
		server.WithServerLogger(logger))

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Sprintplan ready",
			"version", Version,
			"addr", cfg.Server.Addr,
			"output_dir", store.Dir())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// responseStore adapts the generic document store to the planning service.
type responseStore struct {
	store *storage.Store
}

func (r responseStore) Save(meetingID string, response *planning.PlanningResponse) error {
	return r.store.Save(meetingID, response)
}

// buildRegistry loads the model registry and, when file-backed, starts a
// watcher that hot-reloads it on edit.
func buildRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*model.Registry, error) {
	if cfg.Model.RegistryPath == "" {
		logger.Debug("Using built-in model registry")
		return model.NewDefaultRegistry(), nil
	}

	registry, err := model.LoadRegistryFromFile(cfg.Model.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load model registry: %w", err)
	}
	logger.Info("Loaded model registry", "path", cfg.Model.RegistryPath)

	watcher := model.NewWatcher(registry, cfg.Model.RegistryPath,
		model.WithWatcherLogger(logger))
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Registry watcher stopped", "error", err)
		}
	}()

	return registry, nil
}
