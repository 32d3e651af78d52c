package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Rule)
	mu       sync.RWMutex
)

func Register(r Rule) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[r.ID()]; exists {
		panic(fmt.Sprintf("rule %s already registered", r.ID()))
	}
	if r.Kind() != KindLibrary && r.Kind() != KindWebApp {
		panic(fmt.Sprintf("rule %s has unknown kind %q", r.ID(), r.Kind()))
	}
	registry[r.ID()] = r
}

// List returns the registered rules of kind (all kinds when empty), library
// rules first, then by priority and ID.
func List(kind Kind) []Rule {
	mu.RLock()
	defer mu.RUnlock()
	var out []Rule
	for _, r := range registry {
		if kind == "" || r.Kind() == kind {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out
}

func sortRules(rs []Rule) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Kind() != rs[j].Kind() {
			return rs[i].Kind() == KindLibrary
		}
		if rs[i].Priority() != rs[j].Priority() {
			return rs[i].Priority() < rs[j].Priority()
		}
		return rs[i].ID() < rs[j].ID()
	})
}

// Resolve returns a Set with every registered rule except the comma-separated
// IDs in disabled. Unknown IDs are an error.
func Resolve(disabled string) (*Set, error) {
	skip := make(map[string]bool)
	mu.RLock()
	for _, id := range strings.Split(disabled, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := registry[id]; !ok {
			mu.RUnlock()
			return nil, fmt.Errorf("rule not found: %s", id)
		}
		skip[id] = true
	}
	mu.RUnlock()

	var enabled []Rule
	for _, r := range List("") {
		if !skip[r.ID()] {
			enabled = append(enabled, r)
		}
	}
	return NewSet(enabled...), nil
}
