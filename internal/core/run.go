package core

// run.go executes one build run end to end: resolve each dataset's
// source, read and normalize the CSV, project documents, then compute
// totals and swap the output tree into place.
//
// Any dataset error fails the whole run and nothing is written; the
// previously published tree stays as it was.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"covidfeed/internal/config"
	"covidfeed/internal/covid"
	"covidfeed/internal/frame"
	"covidfeed/internal/logging"
	"covidfeed/internal/sink"
)

func (s *Service) processRun(ctx context.Context, run *activeRun, defs []DatasetDefinition, force bool) {
	defer s.limiter.Release()
	defer close(run.Done)
	defer run.closeListeners()
	defer run.Cancel()

	logger := logging.WithFields(ctx, "run_id", run.ID)
	logger.Info("run started", "datasets", len(defs))

	result := &RunResult{
		RunID:     run.ID,
		OutputDir: s.cfg.Paths.OutputDir,
		StartedAt: run.StartedAt,
	}

	acc := &Accumulator{}
	keys := make([]string, 0, len(defs))

	for i, def := range defs {
		key := def.Info.Key

		if err := ctx.Err(); err != nil {
			s.failRun(run, result, logger, fmt.Errorf("dataset %s: %w", key, err))
			return
		}

		dsStart := time.Now()
		run.update(func(p *RunProgress) {
			p.Phase = PhaseFetching
			p.Dataset = key
		})

		path, fetched, err := s.resolveSource(ctx, def, force)
		if err != nil {
			s.failRun(run, result, logger, fmt.Errorf("dataset %s: %w", key, err))
			return
		}

		run.update(func(p *RunProgress) { p.Phase = PhaseReading })
		table, err := frame.ReadCSVFile(path, def.HeaderHints)
		if err != nil {
			s.failRun(run, result, logger, fmt.Errorf("dataset %s: %w", key, err))
			return
		}

		run.update(func(p *RunProgress) { p.Phase = PhaseNormalizing })
		normalized, err := frame.Normalize(table, s.cfg.Build.DateKey)
		if err != nil {
			s.failRun(run, result, logger, fmt.Errorf("dataset %s: %w", key, err))
			return
		}

		run.update(func(p *RunProgress) { p.Phase = PhaseProjecting })
		items, err := def.Project(normalized, acc)
		if err != nil {
			s.failRun(run, result, logger, fmt.Errorf("dataset %s: %w", key, err))
			return
		}

		rows := len(normalized.Rows)
		elapsed := time.Since(dsStart)
		keys = append(keys, key)
		result.Datasets = append(result.Datasets, DatasetResult{
			Key:        key,
			Rows:       rows,
			Items:      items,
			Fetched:    fetched,
			Duration:   elapsed,
			DurationMs: elapsed.Milliseconds(),
		})

		done := i + 1
		run.update(func(p *RunProgress) {
			p.DatasetsDone = done
			p.Rows += rows
			p.Items += items
		})
		logger.Info("dataset processed",
			"dataset", key,
			"rows", rows,
			"items", items,
			"fetched", fetched,
		)
	}

	run.update(func(p *RunProgress) {
		p.Phase = PhaseWriting
		p.Dataset = ""
	})

	manifest, err := sink.Write(s.cfg.Paths.OutputDir, &sink.Bundle{
		RunID:      run.ID,
		Datasets:   keys,
		Items:      acc.Items,
		Population: acc.Population,
		Totals:     covid.ComputeTotals(acc.Items),
	})
	if err != nil {
		s.failRun(run, result, logger, fmt.Errorf("write output: %w", err))
		return
	}

	now := time.Now()
	result.Items = len(acc.Items)
	result.Countries = manifest.Countries
	result.Files = manifest.Files
	result.FinishedAt = now
	result.Duration = now.Sub(result.StartedAt)
	result.DurationMs = result.Duration.Milliseconds()

	run.finish(PhaseComplete, result)
	s.setLatest(result)
	s.cleanup(run.ID, RunRetention)

	logger.Info("run complete",
		"items", result.Items,
		"countries", result.Countries,
		"files", result.Files,
		"duration_ms", result.DurationMs,
	)
	s.renderSummary(result)
}

// failRun finalizes a run that could not complete, distinguishing
// cancellation from failure.
func (s *Service) failRun(run *activeRun, result *RunResult, logger *slog.Logger, err error) {
	now := time.Now()
	result.FinishedAt = now
	result.Duration = now.Sub(result.StartedAt)
	result.DurationMs = result.Duration.Milliseconds()
	result.Error = err.Error()

	phase := PhaseFailed
	if errors.Is(err, context.Canceled) {
		phase = PhaseCancelled
		logger.Info("run cancelled")
	} else {
		logger.Error("run failed", "error", err)
	}

	run.finish(phase, result)
	s.setLatest(result)
	s.cleanup(run.ID, RunRetention)
}

// resolveSource returns the local path of a dataset's CSV, downloading
// it unless a sufficiently fresh cached copy exists. The second return
// reports whether a download happened.
func (s *Service) resolveSource(ctx context.Context, def DatasetDefinition, force bool) (string, bool, error) {
	path := filepath.Join(s.cfg.Paths.InputDir, def.Info.Filename)

	url := config.SourceOverride(def.Info.Key)
	if url == "" {
		url = def.Info.SourceURL
	}

	info, statErr := os.Stat(path)
	cached := statErr == nil

	if cached && !force {
		if url == "" || time.Since(info.ModTime()) < s.cfg.Fetch.Refresh {
			return path, false, nil
		}
	}

	if url == "" {
		if cached {
			// Force with nowhere to fetch from: the cached copy is all
			// there is.
			return path, false, nil
		}
		return "", false, fmt.Errorf("no cached file at %s and no source url", path)
	}

	if _, err := s.fetcher.FetchTo(ctx, url, path); err != nil {
		return "", false, err
	}
	return path, true, nil
}
