// Package nav filters the console's static navigation tree down to what a
// user's roles can reach.
package nav

import (
	"sync"

	"go-pos-access/internal/permission"
	"go-pos-access/internal/policy"
)

// Item is one navigation entry. An item with Any set is shown when the user
// holds at least one of those codes; a group without a Path is shown only
// when at least one child survives.
type Item struct {
	Key      string            `json:"key"`
	Label    string            `json:"label"`
	Path     string            `json:"path,omitempty"`
	Any      []permission.Code `json:"-"`
	Children []Item            `json:"children,omitempty"`
}

// Filter returns the visible subset of items as a fresh tree. items is
// never modified.
func Filter(grants []policy.Grant, items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if len(it.Any) > 0 && !policy.AllowsAny(grants, it.Any...) {
			continue
		}
		visible := Item{Key: it.Key, Label: it.Label, Path: it.Path}
		if len(it.Children) > 0 {
			visible.Children = Filter(grants, it.Children)
			if len(visible.Children) == 0 && it.Path == "" {
				continue
			}
		}
		out = append(out, visible)
	}
	return out
}

const maxCached = 256

// Resolver memoizes Filter results per role-assignment key. Callers derive
// the key from role identity and version, so an edited role never hits a
// stale entry.
type Resolver struct {
	tree  []Item
	mu    sync.Mutex
	cache map[string][]Item
}

func NewResolver(tree []Item) *Resolver {
	return &Resolver{tree: tree, cache: make(map[string][]Item)}
}

// Visible returns the filtered tree for key, computing it on first use.
func (r *Resolver) Visible(key string, grants []policy.Grant) []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if items, ok := r.cache[key]; ok {
		return items
	}
	if len(r.cache) >= maxCached {
		r.cache = make(map[string][]Item)
	}
	items := Filter(grants, r.tree)
	r.cache[key] = items
	return items
}
