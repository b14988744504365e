package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"covidfeed/internal/core"
)

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Service    string           `json:"service"`
	Datasets   int              `json:"datasets"`
	ActiveRuns []core.RunStatus `json:"active_runs"`
	LatestRun  *core.RunResult  `json:"latest_run,omitempty"`
	Schedule   string           `json:"schedule,omitempty"`
	Watching   bool             `json:"watching"`
}

// handleStatus returns a snapshot of the builder: registered datasets,
// runs in flight, the latest finished run, and the rebuild triggers.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{
		Service:    "covidfeed",
		Datasets:   len(s.service.Datasets()),
		ActiveRuns: s.service.ActiveRuns(),
		LatestRun:  s.service.LatestResult(),
		Schedule:   s.cfg.Build.ScheduleSpec,
		Watching:   s.cfg.Build.WatchInput,
	})
}

// handleDatasets lists the registered dataset definitions.
func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]core.DatasetInfo{
		"datasets": s.service.Datasets(),
	})
}

// handleRunStatus returns the state of one run, active or recently
// finished.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	status, ok := s.service.RunStatus(runID)
	if !ok {
		respondError(w, r, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID), http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

type rebuildResponse struct {
	RunID     string `json:"run_id"`
	StatusURL string `json:"status_url"`
}

// handleRebuild starts a build run. The optional JSON body selects
// datasets and forces refetching. Returns 202 with the run id, or 409
// when a run is already active.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var req core.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, fmt.Errorf("decode rebuild request: %w", err), http.StatusBadRequest)
		return
	}

	runID, err := s.service.StartRun(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, core.ErrRunInProgress) {
			status = http.StatusConflict
		}
		respondError(w, r, err, status)
		return
	}

	respondJSON(w, http.StatusAccepted, rebuildResponse{
		RunID:     runID,
		StatusURL: "/api/runs/" + runID,
	})
}

// handleCancelRun cancels an active run.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if !s.service.CancelRun(runID) {
		respondError(w, r, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID), http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"run_id":    runID,
		"cancelled": true,
	})
}

// handleRunProgress streams run progress as server-sent events. The
// stream ends with a "complete" event once the run reaches a terminal
// phase. Reconnecting clients send Last-Event-ID (the percent they
// saw) and duplicate events below it are skipped.
func (s *Server) handleRunProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	ch, err := s.service.SubscribeProgress(runID)
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, errors.New("streaming unsupported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// The stream must outlive the server write timeout.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	lastSeen := -1
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			lastSeen = n
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case progress, ok := <-ch:
			if !ok {
				return
			}

			pct := progress.Percent()
			if !progress.Phase.Terminal() && pct <= lastSeen {
				continue
			}

			data, err := json.Marshal(progress)
			if err != nil {
				continue
			}

			event := "progress"
			if progress.Phase.Terminal() {
				event = "complete"
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", pct, event, data)
			flusher.Flush()

			if progress.Phase.Terminal() {
				return
			}
		}
	}
}
