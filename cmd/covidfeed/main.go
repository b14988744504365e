package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"covidfeed/internal/config"
	"covidfeed/internal/core"
	_ "covidfeed/internal/core/datasets" // Register all datasets
	"covidfeed/internal/fetch"
	"covidfeed/internal/logging"
	"covidfeed/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	switch cmd {
	case "build":
		os.Exit(runBuild(cfg, args))
	case "fetch":
		os.Exit(runFetch(cfg, args))
	case "serve":
		os.Exit(runServe(cfg))
	case "datasets":
		os.Exit(runDatasets())
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func usage(w *os.File) {
	fmt.Fprint(w, `Usage: covidfeed [command] [flags]

Commands:
  serve     run the HTTP server (default)
  build     run one build: fetch sources as needed, reshape, write the tree
  fetch     download dataset sources into the input directory
  datasets  list the registered datasets

Configuration comes from COVIDFEED_* environment variables, optionally
loaded from a .env file.
`)
}

// datasetList is a repeatable -dataset flag; comma-separated values
// are also accepted.
type datasetList []string

func (d *datasetList) String() string { return strings.Join(*d, ",") }

func (d *datasetList) Set(v string) error {
	for _, key := range strings.Split(v, ",") {
		if key = strings.TrimSpace(key); key != "" {
			*d = append(*d, key)
		}
	}
	return nil
}

// runBuild executes a single run to completion and prints the summary
// table. Ctrl-C cancels the run.
func runBuild(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var datasets datasetList
	fs.Var(&datasets, "dataset", "restrict to a dataset key (repeatable)")
	force := fs.Bool("force", false, "refetch sources even when the cache is fresh")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := core.New(cfg)
	defer svc.Close()

	slog.Info("build starting",
		"datasets", core.Count(),
		"requested", len(datasets),
		"force", *force,
	)

	runID, err := svc.StartRun(ctx, core.RunRequest{
		Datasets: datasets,
		Force:    *force,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		return 1
	}

	// Mirror progress into the log as phases change.
	if ch, err := svc.SubscribeProgress(runID); err == nil {
		go func() {
			var lastPhase core.RunPhase
			var lastDataset string
			for p := range ch {
				if p.Phase == lastPhase && p.Dataset == lastDataset {
					continue
				}
				lastPhase, lastDataset = p.Phase, p.Dataset
				slog.Info("run progress",
					"phase", p.Phase,
					"dataset", p.Dataset,
					"done", p.DatasetsDone,
					"of", p.DatasetCount,
				)
			}
		}()
	}

	// Cancel the run on Ctrl-C but still wait for it to settle.
	go func() {
		<-ctx.Done()
		svc.CancelRun(runID)
	}()

	res, err := svc.WaitForRun(context.Background(), runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		return 1
	}
	if res.Error != "" {
		fmt.Fprintln(os.Stderr, core.FormatUserError(errors.New(res.Error)))
		return 1
	}

	slog.Info("build complete",
		"run_id", res.RunID,
		"items", res.Items,
		"countries", res.Countries,
		"files", res.Files,
		"duration_ms", res.DurationMs,
	)
	return 0
}

// runFetch downloads sources into the input directory, regardless of
// cache freshness.
func runFetch(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	var datasets datasetList
	fs.Var(&datasets, "dataset", "restrict to a dataset key (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	defs, err := selectDatasets(datasets)
	if err != nil {
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		return 1
	}

	if err := os.MkdirAll(cfg.Paths.InputDir, 0o755); err != nil {
		slog.Error("failed to create input directory", "dir", cfg.Paths.InputDir, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := fetch.NewClient(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)

	failed := 0
	for _, def := range defs {
		url := config.SourceOverride(def.Info.Key)
		if url == "" {
			url = def.Info.SourceURL
		}
		if url == "" {
			slog.Info("skipping local-only dataset", "dataset", def.Info.Key)
			continue
		}

		path := filepath.Join(cfg.Paths.InputDir, def.Info.Filename)
		slog.Info("fetching source", "dataset", def.Info.Key, "url", url)

		size, err := client.FetchTo(ctx, url, path)
		if err != nil {
			slog.Error("fetch failed", "dataset", def.Info.Key, "error", err)
			failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}
		slog.Info("source fetched", "dataset", def.Info.Key, "bytes", size, "path", path)
	}

	if failed > 0 {
		slog.Error("fetch finished with failures", "failed", failed, "total", len(defs))
		return 1
	}
	return 0
}

// runServe runs the HTTP server with the configured background
// triggers until interrupted.
func runServe(cfg *config.Config) int {
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"input_dir", cfg.Paths.InputDir,
		"output_dir", cfg.Paths.OutputDir,
		"schedule", cfg.Build.ScheduleSpec,
		"watch_input", cfg.Build.WatchInput,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	svc := core.New(cfg)
	defer svc.Close()

	if err := svc.Start(); err != nil {
		slog.Error("failed to start service", "error", err)
		return 1
	}

	slog.Info("datasets registered",
		"count", core.Count(),
		"groups", len(core.Groups()),
	)
	for _, group := range core.Groups() {
		slog.Debug("dataset group", "group", group, "datasets", len(core.ByGroup(group)))
	}

	server := web.NewServer(cfg, svc)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let an active run finish before pulling the server away.
		if err := svc.Drain(shutdownCtx); err != nil {
			slog.Warn("active runs did not finish in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		return 1
	}
	return 0
}

// runDatasets prints the registry as a table.
func runDatasets() int {
	defs := core.All()
	infos := make([]core.DatasetInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	core.RenderDatasets(os.Stdout, infos)
	return 0
}

// selectDatasets resolves the requested keys, defaulting to the whole
// registry.
func selectDatasets(keys []string) ([]core.DatasetDefinition, error) {
	if len(keys) == 0 {
		return core.All(), nil
	}

	defs := make([]core.DatasetDefinition, 0, len(keys))
	for _, key := range keys {
		def, ok := core.Get(key)
		if !ok {
			return nil, fmt.Errorf("unknown dataset: %s", key)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
