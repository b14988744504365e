// Package core provides the business logic for building the COVID data feed.
//
// This package is the heart of covidfeed, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Dataset Definitions: Registered via the registry, each dataset names a
//     source CSV, the header hints used to locate the real header row, and a
//     projection that turns normalized rows into timeline items.
//   - Service: The main entry point for all operations (run, status, cancel).
//   - Runs: A run fetches, reads, normalizes and projects every selected
//     dataset, then writes the per-country JSON tree in one atomic swap.
//   - Scheduling: Optional cron rebuilds and input-directory watching keep
//     the output tree fresh without manual triggers.
//
// # Dataset Registry
//
// Datasets are registered at init time using [Register]. Each
// [DatasetDefinition] contains everything needed to process one source file:
//
//	core.Register(DatasetDefinition{
//	    Info: DatasetInfo{
//	        Key:      "jhu_confirmed",
//	        Group:    "timeseries",
//	        Label:    "Confirmed cases",
//	        Filename: "time_series_covid19_confirmed_global.csv",
//	    },
//	    HeaderHints: []string{"Province/State", "Country/Region"},
//	    Project:     projectConfirmed,
//	})
//
// # Run Lifecycle
//
// A run moves through phases from starting to complete:
//
//  1. Client calls [Service.StartRun], which enforces the single-run limit
//  2. Each dataset is fetched (or served from cache), read and normalized
//  3. Projections accumulate timeline items and population history
//  4. The sink writes the staging tree and swaps it in atomically
//
// Progress is broadcast to subscribers via [Service.SubscribeProgress].
// Any dataset error fails the whole run and the previous output stays.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with stable codes for
// support reference:
//
//   - CLS001-CLS003: Header classification errors (malformed, collisions)
//   - NRM001-NRM002: Normalization errors (dates, value casts)
//   - FETCH001-FETCH004: Source fetch errors (size caps, network, HTTP)
//   - RUN001-RUN005: Run errors (already running, not found, cancelled)
package core
