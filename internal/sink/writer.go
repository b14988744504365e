// Package sink writes the generated JSON document tree.
//
// A build produces one self-contained tree:
//
//	by-country/{country}_{province}.json
//	by-country/{country}.json
//	population/history.json
//	totals.json
//	manifest.json
//
// The tree is assembled in a staging directory and swapped into place
// in one rename, so readers never observe a half-written build.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"covidfeed/internal/covid"
)

// Bundle is everything a completed build hands to the sink.
type Bundle struct {
	RunID      string
	Datasets   []string
	Items      []covid.Item
	Population []covid.PopulationHistory
	Totals     *covid.Totals
}

// Manifest describes a written tree. It is stored as manifest.json at
// the tree root.
type Manifest struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Datasets    []string  `json:"datasets"`
	Files       int       `json:"files"`
	Items       int       `json:"items"`
	Countries   int       `json:"countries"`
}

// countryDoc is the per-location document. Absent statuses marshal as
// null.
type countryDoc struct {
	Confirmed *covid.Item `json:"confirmed"`
	Deaths    *covid.Item `json:"deaths"`
	Recovered *covid.Item `json:"recovered"`
}

// Write renders the bundle under dir, replacing any previous tree only
// after every file was written successfully.
func Write(dir string, b *Bundle) (*Manifest, error) {
	if b == nil {
		return nil, fmt.Errorf("nil bundle")
	}

	docs, order, err := groupByLocation(b.Items)
	if err != nil {
		return nil, err
	}

	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create parent dir: %w", err)
	}
	staging, err := os.MkdirTemp(parent, ".staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0o755); err != nil {
		return nil, fmt.Errorf("chmod staging dir: %w", err)
	}

	files := 0

	byCountry := filepath.Join(staging, "by-country")
	if err := os.Mkdir(byCountry, 0o755); err != nil {
		return nil, fmt.Errorf("create by-country dir: %w", err)
	}
	for _, slug := range order {
		if err := writeJSON(filepath.Join(byCountry, slug+".json"), docs[slug]); err != nil {
			return nil, err
		}
		files++
	}

	population := b.Population
	if population == nil {
		population = []covid.PopulationHistory{}
	}
	popDir := filepath.Join(staging, "population")
	if err := os.Mkdir(popDir, 0o755); err != nil {
		return nil, fmt.Errorf("create population dir: %w", err)
	}
	if err := writeJSON(filepath.Join(popDir, "history.json"), population); err != nil {
		return nil, err
	}
	files++

	totals := b.Totals
	if totals == nil {
		totals = covid.ComputeTotals(nil)
	}
	if err := writeJSON(filepath.Join(staging, "totals.json"), totals); err != nil {
		return nil, err
	}
	files++

	manifest := &Manifest{
		RunID:       b.RunID,
		GeneratedAt: time.Now().UTC(),
		Datasets:    b.Datasets,
		Files:       files + 1,
		Items:       len(b.Items),
		Countries:   countCountries(b.Items),
	}
	if err := writeJSON(filepath.Join(staging, "manifest.json"), manifest); err != nil {
		return nil, err
	}

	if err := swapDirs(staging, filepath.Clean(dir)); err != nil {
		return nil, err
	}
	return manifest, nil
}

// groupByLocation folds items into per-(country, province) documents
// keyed by slug, returning the slugs in sorted order for deterministic
// output.
func groupByLocation(items []covid.Item) (map[string]*countryDoc, []string, error) {
	docs := make(map[string]*countryDoc)
	names := make(map[string]string)

	for _, item := range items {
		name := item.CountryRegion
		if item.ProvinceState != "" {
			name = item.CountryRegion + " " + item.ProvinceState
		}
		slug, err := slugify(name)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset row for %q: %w", name, err)
		}
		if prev, ok := names[slug]; ok && prev != name {
			return nil, nil, fmt.Errorf("location %q collides with %q on filename %s.json", name, prev, slug)
		}
		names[slug] = name

		doc := docs[slug]
		if doc == nil {
			doc = &countryDoc{}
			docs[slug] = doc
		}
		switch item.Status {
		case covid.StatusConfirmed:
			doc.Confirmed = &item
		case covid.StatusDeaths:
			doc.Deaths = &item
		case covid.StatusRecovered:
			doc.Recovered = &item
		default:
			return nil, nil, fmt.Errorf("item for %q has unknown status %q", name, item.Status)
		}
	}

	order := make([]string, 0, len(docs))
	for slug := range docs {
		order = append(order, slug)
	}
	sort.Strings(order)
	return docs, order, nil
}

// slugify turns a location name into a safe filename stem: lowercase,
// spaces and path separators become underscores, anything outside
// [a-z0-9_.-] is dropped.
func slugify(s string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r == ' ' || r == '/' || r == '\\':
			b.WriteRune('_')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if strings.Trim(slug, "._-") == "" {
		return "", fmt.Errorf("name %q has no usable characters", s)
	}
	return slug, nil
}

// writeJSON writes v as indented JSON with a trailing newline.
func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// swapDirs moves the staging tree to dir. The previous tree is parked
// under a sibling name until the new one is in place, then removed.
func swapDirs(staging, dir string) error {
	old := dir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("clear previous swap leftover: %w", err)
	}

	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("park previous tree: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat output dir: %w", err)
	}

	if err := os.Rename(staging, dir); err != nil {
		// Put the previous tree back rather than leaving nothing.
		os.Rename(old, dir)
		return fmt.Errorf("swap in new tree: %w", err)
	}

	os.RemoveAll(old)
	return nil
}

func countCountries(items []covid.Item) int {
	seen := make(map[string]struct{})
	for _, item := range items {
		seen[item.CountryRegion] = struct{}{}
	}
	return len(seen)
}
