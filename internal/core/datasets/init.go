// Package datasets registers all dataset definitions with the core registry.
// Import this package to ensure all datasets are registered.
package datasets

// This file exists to provide a single import point.
// Each source file uses init() to register its datasets.
