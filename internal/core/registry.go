package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]DatasetDefinition)
	registryMu sync.RWMutex
)

// Register adds a dataset definition to the registry.
// Panics on an empty or duplicate key, or a nil projector; registration
// happens in init, so any of these is a programming error.
func Register(def DatasetDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if def.Info.Key == "" {
		panic("dataset registered with an empty key")
	}
	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("dataset already registered: %s", def.Info.Key))
	}
	if def.Project == nil {
		panic(fmt.Sprintf("dataset %s registered without a projector", def.Info.Key))
	}

	registry[def.Info.Key] = def
}

// Get returns a dataset definition by key.
// Returns false if not found.
func Get(key string) (DatasetDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered dataset definitions.
// Sorted by key for consistent ordering.
func All() []DatasetDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasetDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ByGroup returns all dataset definitions for a specific group.
// Sorted by key for consistent ordering.
func ByGroup(group string) []DatasetDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []DatasetDefinition
	for _, def := range registry {
		if def.Info.Group == group {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// Keys returns all registered dataset keys in All() order.
func Keys() []string {
	defs := All()
	keys := make([]string, len(defs))
	for i, def := range defs {
		keys[i] = def.Info.Key
	}
	return keys
}

// Count returns the number of registered datasets.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered datasets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]DatasetDefinition)
}
