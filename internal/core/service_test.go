package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"covidfeed/internal/config"
	"covidfeed/internal/covid"
	"covidfeed/internal/frame"
	"covidfeed/internal/sink"
)

const casesCSV = `Province/State,Country/Region,Lat,Long,3/21/20,3/22/20
,Nepal,28.1667,84.25,1,2
Hubei,China,30.9756,112.2707,67800,67801
`

const populationCSV = `Country Name,Country Code,1960 [YR1960],2018 [YR2018]
Nepal,NPL,10105060,28095714
China,CHN,667070000,1392730000
`

// fakeFetcher serves canned bodies by URL and records every download.
type fakeFetcher struct {
	mu      sync.Mutex
	files   map[string]string
	fetched []string
	err     error
}

func (f *fakeFetcher) FetchTo(ctx context.Context, url, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, f.err
	}
	content, ok := f.files[url]
	if !ok {
		return 0, fmt.Errorf("no fixture for %s", url)
	}
	f.fetched = append(f.fetched, url)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

func (f *fakeFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	cfg.Paths.InputDir = filepath.Join(t.TempDir(), "input")
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "data")
	cfg.Build.DateKey = "d_20060102"
	cfg.Fetch.Timeout = 30 * time.Second
	cfg.Fetch.MaxBytes = 1 << 20
	cfg.Fetch.Refresh = time.Hour
	return cfg
}

func writeInput(t *testing.T, cfg *config.Config, filename, content string) string {
	t.Helper()

	if err := os.MkdirAll(cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatalf("creating input dir: %v", err)
	}
	path := filepath.Join(cfg.Paths.InputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", filename, err)
	}
	return path
}

func projectCases(tb *frame.Table, acc *Accumulator) (int, error) {
	items, err := covid.ProjectItems(tb, covid.StatusConfirmed)
	if err != nil {
		return 0, err
	}
	acc.Items = append(acc.Items, items...)
	return len(items), nil
}

func projectPop(tb *frame.Table, acc *Accumulator) (int, error) {
	records, err := covid.ProjectPopulation(tb)
	if err != nil {
		return 0, err
	}
	acc.Population = append(acc.Population, records...)
	return len(records), nil
}

func registerCasesDataset(t *testing.T, url string) {
	t.Helper()
	Register(DatasetDefinition{
		Info: DatasetInfo{
			Key:       "test_confirmed",
			Group:     "cases",
			Label:     "Confirmed cases",
			SourceURL: url,
			Filename:  "confirmed.csv",
		},
		HeaderHints: []string{"Province/State", "Country/Region"},
		Project:     projectCases,
	})
}

func registerPopulationDataset(t *testing.T) {
	t.Helper()
	Register(DatasetDefinition{
		Info: DatasetInfo{
			Key:      "test_population",
			Group:    "population",
			Label:    "Population history",
			Filename: "population.csv",
		},
		HeaderHints: []string{"Country Name", "Country Code"},
		Project:     projectPop,
	})
}

// gate lets a test hold a run open inside a projection.
type gate struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func registerGatedDataset(t *testing.T, g *gate) {
	t.Helper()
	Register(DatasetDefinition{
		Info: DatasetInfo{
			Key:      "a_gated",
			Group:    "a",
			Label:    "Gated",
			Filename: "gated.csv",
		},
		Project: func(tb *frame.Table, acc *Accumulator) (int, error) {
			g.once.Do(func() { close(g.started) })
			<-g.release
			return 0, nil
		},
	})
}

func TestService_RunPipeline(t *testing.T) {
	Clear()
	defer Clear()
	registerCasesDataset(t, "")
	registerPopulationDataset(t)

	cfg := testConfig(t)
	writeInput(t, cfg, "confirmed.csv", casesCSV)
	writeInput(t, cfg, "population.csv", populationCSV)

	var summary bytes.Buffer
	svc := New(cfg, WithFetcher(&fakeFetcher{}), WithSummaryWriter(&summary))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	res, err := svc.WaitForRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("WaitForRun failed: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("run failed: %s", res.Error)
	}

	if res.RunID != runID {
		t.Errorf("result RunID = %q, want %q", res.RunID, runID)
	}
	if len(res.Datasets) != 2 {
		t.Fatalf("result has %d datasets, want 2", len(res.Datasets))
	}
	// Processing order is key order.
	if res.Datasets[0].Key != "test_confirmed" || res.Datasets[1].Key != "test_population" {
		t.Errorf("dataset order = [%s %s], want [test_confirmed test_population]",
			res.Datasets[0].Key, res.Datasets[1].Key)
	}
	if res.Datasets[0].Rows != 2 || res.Datasets[0].Items != 2 {
		t.Errorf("confirmed dataset rows/items = %d/%d, want 2/2",
			res.Datasets[0].Rows, res.Datasets[0].Items)
	}
	if res.Datasets[0].Fetched {
		t.Error("cached dataset reported as fetched")
	}
	if res.Items != 2 {
		t.Errorf("result Items = %d, want 2", res.Items)
	}
	if res.Countries != 2 {
		t.Errorf("result Countries = %d, want 2", res.Countries)
	}

	// Output tree
	for _, rel := range []string{
		"by-country/nepal.json",
		"by-country/china_hubei.json",
		"population/history.json",
		"totals.json",
		"manifest.json",
	} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, rel)); err != nil {
			t.Errorf("output file %s: %v", rel, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "manifest.json"))
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	var manifest sink.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("decoding manifest: %v", err)
	}
	if manifest.RunID != runID {
		t.Errorf("manifest run id = %q, want %q", manifest.RunID, runID)
	}
	if manifest.Files != 5 {
		t.Errorf("manifest files = %d, want 5", manifest.Files)
	}

	// Status and latest-result bookkeeping
	st, ok := svc.RunStatus(runID)
	if !ok {
		t.Fatal("RunStatus did not find the finished run")
	}
	if st.Progress.Phase != PhaseComplete {
		t.Errorf("phase = %s, want %s", st.Progress.Phase, PhaseComplete)
	}
	if st.Progress.Percent() != 100 {
		t.Errorf("percent = %d, want 100", st.Progress.Percent())
	}
	if latest := svc.LatestResult(); latest == nil || latest.RunID != runID {
		t.Error("LatestResult does not reflect the finished run")
	}

	// Summary table went to the configured writer
	if !strings.Contains(summary.String(), "test_confirmed") {
		t.Errorf("summary output missing dataset key:\n%s", summary.String())
	}
}

func TestService_FetchesWhenMissing(t *testing.T) {
	Clear()
	defer Clear()

	const url = "https://example.com/confirmed.csv"
	registerCasesDataset(t, url)

	cfg := testConfig(t)
	fetcher := &fakeFetcher{files: map[string]string{url: casesCSV}}
	svc := New(cfg, WithFetcher(fetcher), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	res, err := svc.WaitForRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("WaitForRun failed: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("run failed: %s", res.Error)
	}

	if calls := fetcher.calls(); len(calls) != 1 || calls[0] != url {
		t.Errorf("fetch calls = %v, want [%s]", calls, url)
	}
	if !res.Datasets[0].Fetched {
		t.Error("dataset not reported as fetched")
	}

	// The download landed in the input cache
	if _, err := os.Stat(filepath.Join(cfg.Paths.InputDir, "confirmed.csv")); err != nil {
		t.Errorf("cached download: %v", err)
	}
}

func TestService_FreshCacheSkipsFetch(t *testing.T) {
	Clear()
	defer Clear()

	const url = "https://example.com/confirmed.csv"
	registerCasesDataset(t, url)

	cfg := testConfig(t)
	writeInput(t, cfg, "confirmed.csv", casesCSV)

	fetcher := &fakeFetcher{files: map[string]string{url: casesCSV}}
	svc := New(cfg, WithFetcher(fetcher), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if res, err := svc.WaitForRun(context.Background(), runID); err != nil || res.Error != "" {
		t.Fatalf("run did not complete: %v / %+v", err, res)
	}

	if calls := fetcher.calls(); len(calls) != 0 {
		t.Errorf("fresh cache still fetched: %v", calls)
	}
}

func TestService_StaleCacheRefetches(t *testing.T) {
	Clear()
	defer Clear()

	const url = "https://example.com/confirmed.csv"
	registerCasesDataset(t, url)

	cfg := testConfig(t)
	path := writeInput(t, cfg, "confirmed.csv", casesCSV)

	// Age the cached copy past the refresh window.
	old := time.Now().Add(-2 * cfg.Fetch.Refresh)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("aging cached file: %v", err)
	}

	fetcher := &fakeFetcher{files: map[string]string{url: casesCSV}}
	svc := New(cfg, WithFetcher(fetcher), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if res, err := svc.WaitForRun(context.Background(), runID); err != nil || res.Error != "" {
		t.Fatalf("run did not complete: %v / %+v", err, res)
	}

	if calls := fetcher.calls(); len(calls) != 1 {
		t.Errorf("stale cache fetch calls = %v, want one", calls)
	}
}

func TestService_ForceRefetches(t *testing.T) {
	Clear()
	defer Clear()

	const url = "https://example.com/confirmed.csv"
	registerCasesDataset(t, url)

	cfg := testConfig(t)
	writeInput(t, cfg, "confirmed.csv", casesCSV)

	fetcher := &fakeFetcher{files: map[string]string{url: casesCSV}}
	svc := New(cfg, WithFetcher(fetcher), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{Force: true})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if res, err := svc.WaitForRun(context.Background(), runID); err != nil || res.Error != "" {
		t.Fatalf("run did not complete: %v / %+v", err, res)
	}

	if calls := fetcher.calls(); len(calls) != 1 {
		t.Errorf("force fetch calls = %v, want one", calls)
	}
}

func TestService_SourceOverrideEnv(t *testing.T) {
	Clear()
	defer Clear()

	const baked = "https://example.com/confirmed.csv"
	const override = "https://mirror.example.com/confirmed.csv"
	registerCasesDataset(t, baked)

	os.Setenv("COVIDFEED_SOURCE_TEST_CONFIRMED", override)
	defer os.Unsetenv("COVIDFEED_SOURCE_TEST_CONFIRMED")

	cfg := testConfig(t)
	fetcher := &fakeFetcher{files: map[string]string{override: casesCSV}}
	svc := New(cfg, WithFetcher(fetcher), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if res, err := svc.WaitForRun(context.Background(), runID); err != nil || res.Error != "" {
		t.Fatalf("run did not complete: %v / %+v", err, res)
	}

	if calls := fetcher.calls(); len(calls) != 1 || calls[0] != override {
		t.Errorf("fetch calls = %v, want [%s]", calls, override)
	}
}

func TestService_MissingLocalSourceFails(t *testing.T) {
	Clear()
	defer Clear()
	registerPopulationDataset(t)

	cfg := testConfig(t)
	svc := New(cfg, WithFetcher(&fakeFetcher{}), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	res, err := svc.WaitForRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("WaitForRun failed: %v", err)
	}

	if res.Error == "" {
		t.Fatal("run with no cached file and no source url did not fail")
	}
	if !strings.Contains(res.Error, "no cached file") {
		t.Errorf("error = %q, want mention of missing cached file", res.Error)
	}

	st, _ := svc.RunStatus(runID)
	if st.Progress.Phase != PhaseFailed {
		t.Errorf("phase = %s, want %s", st.Progress.Phase, PhaseFailed)
	}

	// Failures surface through LatestResult too.
	if latest := svc.LatestResult(); latest == nil || latest.Error == "" {
		t.Error("LatestResult does not reflect the failed run")
	}
}

func TestService_DatasetErrorKeepsOldOutput(t *testing.T) {
	Clear()
	defer Clear()
	registerCasesDataset(t, "")

	cfg := testConfig(t)
	writeInput(t, cfg, "confirmed.csv", casesCSV)

	svc := New(cfg, WithFetcher(&fakeFetcher{}), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if res, err := svc.WaitForRun(context.Background(), runID); err != nil || res.Error != "" {
		t.Fatalf("first run did not complete: %v / %+v", err, res)
	}

	// Corrupt the source and rerun: the published tree must survive.
	writeInput(t, cfg, "confirmed.csv", "Province/State,Country/Region,Lat,Long,3/21/20\n,Nepal,28.1,84.2,not-a-number\n")

	runID, err = svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	res, err := svc.WaitForRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("WaitForRun failed: %v", err)
	}
	if res.Error == "" {
		t.Fatal("run over corrupt input did not fail")
	}
	if !strings.Contains(res.Error, "test_confirmed") {
		t.Errorf("error = %q, want the failing dataset named", res.Error)
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "by-country", "nepal.json")); err != nil {
		t.Errorf("previous output tree was disturbed: %v", err)
	}
}

func TestService_SecondRunRejected(t *testing.T) {
	Clear()
	defer Clear()

	g := newGate()
	registerGatedDataset(t, g)

	cfg := testConfig(t)
	writeInput(t, cfg, "gated.csv", "A,B\n1,2\n")

	svc := New(cfg, WithFetcher(&fakeFetcher{}), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	<-g.started

	if _, err := svc.StartRun(context.Background(), RunRequest{}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second StartRun = %v, want ErrRunInProgress", err)
	}

	active := svc.ActiveRuns()
	if len(active) != 1 || active[0].RunID != runID {
		t.Errorf("ActiveRuns = %+v, want the one executing run", active)
	}

	close(g.release)
	if res, err := svc.WaitForRun(context.Background(), runID); err != nil || res.Error != "" {
		t.Fatalf("gated run did not complete: %v / %+v", err, res)
	}

	// The slot is free again.
	runID, err = svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun after drain failed: %v", err)
	}
	if _, err := svc.WaitForRun(context.Background(), runID); err != nil {
		t.Fatalf("WaitForRun failed: %v", err)
	}
}

func TestService_CancelRun(t *testing.T) {
	Clear()
	defer Clear()

	g := newGate()
	registerGatedDataset(t, g)
	registerCasesDataset(t, "")

	cfg := testConfig(t)
	writeInput(t, cfg, "gated.csv", "A,B\n1,2\n")
	writeInput(t, cfg, "confirmed.csv", casesCSV)

	svc := New(cfg, WithFetcher(&fakeFetcher{}), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	<-g.started

	if !svc.CancelRun(runID) {
		t.Fatal("CancelRun returned false for an executing run")
	}
	close(g.release)

	res, err := svc.WaitForRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("WaitForRun failed: %v", err)
	}
	if res.Error == "" {
		t.Fatal("cancelled run has no error")
	}

	st, _ := svc.RunStatus(runID)
	if st.Progress.Phase != PhaseCancelled {
		t.Errorf("phase = %s, want %s", st.Progress.Phase, PhaseCancelled)
	}

	// No output was written.
	if _, err := os.Stat(cfg.Paths.OutputDir); !os.IsNotExist(err) {
		t.Errorf("cancelled run left output: %v", err)
	}

	// A finished run can no longer be cancelled.
	if svc.CancelRun(runID) {
		t.Error("CancelRun succeeded on a finished run")
	}
}

func TestService_SubscribeProgress(t *testing.T) {
	Clear()
	defer Clear()

	g := newGate()
	registerGatedDataset(t, g)

	cfg := testConfig(t)
	writeInput(t, cfg, "gated.csv", "A,B\n1,2\n")

	svc := New(cfg, WithFetcher(&fakeFetcher{}), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	<-g.started

	ch, err := svc.SubscribeProgress(runID)
	if err != nil {
		t.Fatalf("SubscribeProgress failed: %v", err)
	}
	close(g.release)

	var last RunProgress
	seen := make(map[RunPhase]bool)
	for p := range ch {
		seen[p.Phase] = true
		last = p
	}

	if last.Phase != PhaseComplete {
		t.Errorf("final phase = %s, want %s", last.Phase, PhaseComplete)
	}
	if !seen[PhaseWriting] {
		t.Error("writing phase never observed")
	}
	if last.RunID != runID {
		t.Errorf("progress run id = %q, want %q", last.RunID, runID)
	}
}

func TestService_UnknownRun(t *testing.T) {
	Clear()
	defer Clear()
	registerCasesDataset(t, "")

	svc := New(testConfig(t), WithFetcher(&fakeFetcher{}), WithSummaryWriter(&bytes.Buffer{}))

	if _, ok := svc.RunStatus("missing"); ok {
		t.Error("RunStatus found a run that never existed")
	}
	if svc.CancelRun("missing") {
		t.Error("CancelRun succeeded for a run that never existed")
	}
	if _, err := svc.SubscribeProgress("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("SubscribeProgress = %v, want ErrRunNotFound", err)
	}
	if _, err := svc.WaitForRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("WaitForRun = %v, want ErrRunNotFound", err)
	}
}

func TestService_StartRunValidation(t *testing.T) {
	Clear()
	defer Clear()

	svc := New(testConfig(t), WithFetcher(&fakeFetcher{}), WithSummaryWriter(&bytes.Buffer{}))

	// Empty registry
	if _, err := svc.StartRun(context.Background(), RunRequest{}); !errors.Is(err, ErrNoDatasets) {
		t.Errorf("StartRun on empty registry = %v, want ErrNoDatasets", err)
	}

	registerCasesDataset(t, "")

	// Unknown key
	_, err := svc.StartRun(context.Background(), RunRequest{Datasets: []string{"nope"}})
	if err == nil || !strings.Contains(err.Error(), "unknown dataset") {
		t.Errorf("StartRun with unknown key = %v, want unknown dataset error", err)
	}

	// Rejected requests must not hold the run slot.
	cfg := testConfig(t)
	writeInput(t, cfg, "confirmed.csv", casesCSV)
	svc = New(cfg, WithFetcher(&fakeFetcher{}), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{Datasets: []string{"test_confirmed", "test_confirmed"}})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	res, err := svc.WaitForRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("WaitForRun failed: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("run failed: %s", res.Error)
	}
	// Duplicate keys are collapsed.
	if len(res.Datasets) != 1 {
		t.Errorf("run processed %d datasets, want 1", len(res.Datasets))
	}
}

func TestService_Drain(t *testing.T) {
	Clear()
	defer Clear()

	g := newGate()
	registerGatedDataset(t, g)

	cfg := testConfig(t)
	writeInput(t, cfg, "gated.csv", "A,B\n1,2\n")

	svc := New(cfg, WithFetcher(&fakeFetcher{}), WithSummaryWriter(&bytes.Buffer{}))

	runID, err := svc.StartRun(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	<-g.started

	// Drain times out while the run is held open.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Drain(ctx); err == nil {
		t.Error("Drain returned while a run was active")
	}

	close(g.release)
	if _, err := svc.WaitForRun(context.Background(), runID); err != nil {
		t.Fatalf("WaitForRun failed: %v", err)
	}

	if err := svc.Drain(context.Background()); err != nil {
		t.Errorf("Drain after completion failed: %v", err)
	}
}

func TestService_Datasets(t *testing.T) {
	Clear()
	defer Clear()
	registerPopulationDataset(t)
	registerCasesDataset(t, "https://example.com/confirmed.csv")

	svc := New(testConfig(t), WithFetcher(&fakeFetcher{}))

	infos := svc.Datasets()
	if len(infos) != 2 {
		t.Fatalf("Datasets returned %d entries, want 2", len(infos))
	}
	if infos[0].Key != "test_confirmed" || infos[1].Key != "test_population" {
		t.Errorf("dataset order = [%s %s], want [test_confirmed test_population]",
			infos[0].Key, infos[1].Key)
	}
}

func TestResolveDatasets(t *testing.T) {
	Clear()
	defer Clear()

	Register(testDef("b_key", "beta"))
	Register(testDef("a_key", "alpha"))

	// Empty request resolves to everything, ordered.
	defs, err := resolveDatasets(nil)
	if err != nil {
		t.Fatalf("resolveDatasets(nil) failed: %v", err)
	}
	if len(defs) != 2 || defs[0].Info.Key != "a_key" {
		t.Errorf("resolved order wrong: %+v", defs)
	}

	// Explicit keys are deduplicated and reordered.
	defs, err = resolveDatasets([]string{"b_key", "a_key", "b_key"})
	if err != nil {
		t.Fatalf("resolveDatasets failed: %v", err)
	}
	if len(defs) != 2 || defs[0].Info.Key != "a_key" || defs[1].Info.Key != "b_key" {
		t.Errorf("resolved = %+v, want [a_key b_key]", defs)
	}

	if _, err := resolveDatasets([]string{"missing"}); err == nil {
		t.Error("resolveDatasets accepted an unknown key")
	}

	Clear()
	if _, err := resolveDatasets(nil); !errors.Is(err, ErrNoDatasets) {
		t.Errorf("resolveDatasets on empty registry = %v, want ErrNoDatasets", err)
	}
}
