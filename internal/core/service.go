package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"covidfeed/internal/config"
	"covidfeed/internal/fetch"
)

// RunTimeout is the maximum duration for a single build run.
var RunTimeout = 15 * time.Minute

// RunRetention is how long finished runs stay queryable before being
// dropped from tracking.
var RunRetention = time.Hour

// ErrRunNotFound is returned when a run id is unknown or already
// dropped from tracking.
var ErrRunNotFound = errors.New("run not found")

// ErrNoDatasets is returned when a run is requested but nothing is
// registered.
var ErrNoDatasets = errors.New("no datasets registered")

// Fetcher downloads a source URL into a local file.
type Fetcher interface {
	FetchTo(ctx context.Context, url, path string) (int64, error)
}

// Service coordinates build runs: source resolution, reshaping,
// projection, and the output tree swap. Construct with New, tear down
// with Close.
type Service struct {
	cfg     *config.Config
	fetcher Fetcher
	limiter *RunLimiter
	summary io.Writer

	mu     sync.RWMutex
	runs   map[string]*activeRun
	latest *RunResult

	cron        *cron.Cron
	watcher     *fsnotify.Watcher
	watchCancel context.CancelFunc
}

// activeRun tracks one run from admission to retention expiry.
type activeRun struct {
	ID        string
	StartedAt time.Time
	Cancel    context.CancelFunc
	Done      chan struct{}

	mu        sync.Mutex
	progress  RunProgress
	result    *RunResult
	listeners []chan RunProgress
}

// Option customizes a Service.
type Option func(*Service)

// WithFetcher overrides the source downloader. Tests use this to stay
// off the network.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithSummaryWriter redirects the post-run summary table, which goes
// to stdout by default.
func WithSummaryWriter(w io.Writer) Option {
	return func(s *Service) { s.summary = w }
}

// New creates a Service. Background triggers (schedule, watcher) are
// not armed until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		limiter: NewRunLimiter(DefaultMaxConcurrentRuns),
		summary: os.Stdout,
		runs:    make(map[string]*activeRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = fetch.NewClient(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)
	}
	return s
}

// Start arms the optional background triggers configured on the
// service: the cron schedule and the input directory watcher.
func (s *Service) Start() error {
	if err := s.startScheduler(); err != nil {
		return err
	}
	if err := s.startWatcher(); err != nil {
		s.stopScheduler()
		return err
	}
	return nil
}

// Close stops the background triggers. It does not interrupt an
// executing run; use Drain to wait for one.
func (s *Service) Close() {
	s.stopScheduler()
	s.stopWatcher()
}

// Drain blocks until active runs complete or the context is cancelled.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Datasets returns the registered datasets for listings.
func (s *Service) Datasets() []DatasetInfo {
	defs := All()
	infos := make([]DatasetInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// StartRun begins an asynchronous build run and returns its id
// immediately. At most one run executes at a time; a second request
// fails with ErrRunInProgress.
func (s *Service) StartRun(ctx context.Context, req RunRequest) (string, error) {
	defs, err := resolveDatasets(req.Datasets)
	if err != nil {
		return "", err
	}

	if err := s.limiter.TryAcquire(); err != nil {
		return "", err
	}

	runID := uuid.New().String()

	// The run outlives the request that started it.
	runCtx, cancel := context.WithTimeout(context.Background(), RunTimeout)

	run := &activeRun{
		ID:        runID,
		StartedAt: time.Now(),
		Cancel:    cancel,
		Done:      make(chan struct{}),
		progress: RunProgress{
			RunID:        runID,
			Phase:        PhaseStarting,
			DatasetCount: len(defs),
		},
	}

	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	go s.processRun(runCtx, run, defs, req.Force)

	return runID, nil
}

// RunStatus returns the status of a tracked run.
func (s *Service) RunStatus(id string) (*RunStatus, bool) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	st := run.status()
	return &st, true
}

// ActiveRuns returns the runs that have not reached a terminal phase.
func (s *Service) ActiveRuns() []RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []RunStatus
	for _, run := range s.runs {
		st := run.status()
		if !st.Progress.Phase.Terminal() {
			active = append(active, st)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].StartedAt.Before(active[j].StartedAt)
	})
	return active
}

// CancelRun cancels an executing run. Returns false when the id is
// unknown or the run already finished.
func (s *Service) CancelRun(id string) bool {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok || run.status().Progress.Phase.Terminal() {
		return false
	}
	run.Cancel()
	return true
}

// SubscribeProgress returns a channel receiving progress updates for a
// run, starting with its current state. The channel is closed when the
// run completes.
func (s *Service) SubscribeProgress(id string) (<-chan RunProgress, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run.subscribe(), nil
}

// WaitForRun blocks until the run completes and returns its result.
func (s *Service) WaitForRun(ctx context.Context, id string) (*RunResult, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-run.Done:
	}
	return run.status().Result, nil
}

// LatestResult returns the most recent finished run, or nil.
func (s *Service) LatestResult() *RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// resolveDatasets maps requested keys to definitions, defaulting to
// the whole registry. The result is ordered by key, which fixes the
// processing order of a run.
func resolveDatasets(keys []string) ([]DatasetDefinition, error) {
	if len(keys) == 0 {
		defs := All()
		if len(defs) == 0 {
			return nil, ErrNoDatasets
		}
		return defs, nil
	}

	seen := make(map[string]bool, len(keys))
	defs := make([]DatasetDefinition, 0, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true

		def, ok := Get(key)
		if !ok {
			return nil, fmt.Errorf("unknown dataset: %s", key)
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Info.Key < defs[j].Info.Key
	})
	return defs, nil
}

// setLatest records the result of a finished run.
func (s *Service) setLatest(res *RunResult) {
	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()
}

// cleanup drops the run from tracking after the retention delay.
func (s *Service) cleanup(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}

// update applies a mutation to the run's progress and fans the new
// snapshot out to listeners. Slow listeners miss updates rather than
// blocking the run.
func (r *activeRun) update(mutate func(*RunProgress)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mutate(&r.progress)
	for _, ch := range r.listeners {
		select {
		case ch <- r.progress:
		default:
		}
	}
}

// finish records the terminal state and result.
func (r *activeRun) finish(phase RunPhase, res *RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress.Phase = phase
	r.progress.Error = res.Error
	r.result = res
	for _, ch := range r.listeners {
		select {
		case ch <- r.progress:
		default:
		}
	}
}

func (r *activeRun) subscribe() <-chan RunProgress {
	ch := make(chan RunProgress, 10)

	r.mu.Lock()
	r.listeners = append(r.listeners, ch)
	// Seed with the current state so subscribers need no extra poll.
	select {
	case ch <- r.progress:
	default:
	}
	r.mu.Unlock()

	return ch
}

func (r *activeRun) closeListeners() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.listeners {
		close(ch)
	}
	r.listeners = nil
}

func (r *activeRun) status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RunStatus{
		RunID:     r.ID,
		StartedAt: r.StartedAt,
		Progress:  r.progress,
		Result:    r.result,
	}
}
