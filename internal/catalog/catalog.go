package catalog

import (
	"encoding/json"
	"math/rand"
	"os"
	"strings"
)

// Item is a sellable catalog entry. Path names the object in the file
// store; Weight drives the random pick among active items.
type Item struct {
	ID       string  `json:"id"`
	Path     string  `json:"path"`
	Weight   float64 `json:"weight"`
	Active   bool    `json:"active"`
	Category string  `json:"category,omitempty"`
}

// Source tags where a loaded catalog came from.
type Source string

const (
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceDefault Source = "default"
)

// DefaultItems is the built-in last-resort catalog.
func DefaultItems() []Item {
	return []Item{
		{ID: "ebook_default", Path: "ebooks/default.pdf", Weight: 1, Active: true},
	}
}

// Loader resolves the catalog from a file, then an inline JSON blob,
// then the built-in default. A missing or malformed source counts as
// absent, never as a fatal error.
type Loader struct {
	// File is the primary source, a JSON file on disk.
	File string
	// JSON is the secondary source, an inline JSON blob (typically
	// from an env var).
	JSON string
}

// Load returns the catalog and the source it came from. The catalog is
// re-read on every call; callers get a fresh snapshot per claim.
func (l Loader) Load() ([]Item, Source) {
	if p := strings.TrimSpace(l.File); p != "" {
		if b, err := os.ReadFile(p); err == nil {
			if items, err := decodeItems(b); err == nil {
				return items, SourceFile
			}
		}
	}
	if raw := strings.TrimSpace(l.JSON); raw != "" {
		if items, err := decodeItems([]byte(raw)); err == nil {
			return items, SourceEnv
		}
	}
	return DefaultItems(), SourceDefault
}

// rawItem carries decode-time defaults: weight 1 and active true when
// the fields are omitted, while an explicit zero weight stays zero.
type rawItem struct {
	ID       string   `json:"id"`
	Path     string   `json:"path"`
	Weight   *float64 `json:"weight"`
	Active   *bool    `json:"active"`
	Category string   `json:"category"`
}

func decodeItems(b []byte) ([]Item, error) {
	var raws []rawItem
	if err := json.Unmarshal(b, &raws); err != nil {
		var wrapper struct {
			Items []rawItem `json:"items"`
		}
		if err2 := json.Unmarshal(b, &wrapper); err2 != nil || wrapper.Items == nil {
			return nil, err
		}
		raws = wrapper.Items
	}

	items := make([]Item, 0, len(raws))
	for _, r := range raws {
		it := Item{
			ID:       strings.TrimSpace(r.ID),
			Path:     strings.TrimSpace(r.Path),
			Weight:   1,
			Active:   true,
			Category: strings.TrimSpace(r.Category),
		}
		if r.Weight != nil && *r.Weight >= 0 {
			it.Weight = *r.Weight
		}
		if r.Active != nil {
			it.Active = *r.Active
		}
		if it.ID == "" || it.Path == "" {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// Pick selects an item. A requested id naming an active item wins
// deterministically (matching is case-insensitive and trimmed);
// otherwise the draw is weighted random over the active set. The
// second return is false when no active item exists.
func Pick(items []Item, requestedID string) (Item, bool) {
	active := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Active {
			active = append(active, it)
		}
	}
	if len(active) == 0 {
		return Item{}, false
	}

	if want := strings.ToLower(strings.TrimSpace(requestedID)); want != "" {
		for _, it := range active {
			if strings.ToLower(it.ID) == want {
				return it, true
			}
		}
	}

	var total float64
	for _, it := range active {
		total += it.Weight
	}
	if total <= 0 {
		// Every weight is zero: no preference, uniform pick.
		return active[rand.Intn(len(active))], true
	}
	return pickWeighted(active, rand.Float64()*total), true
}

// pickWeighted walks the items subtracting weights from u until the
// remainder drops to or below zero, giving each item probability
// weight/total for u uniform in [0, total).
func pickWeighted(items []Item, u float64) Item {
	for _, it := range items {
		u -= it.Weight
		if u <= 0 {
			return it
		}
	}
	// Floating point slack; the draw never exceeds the total by more
	// than rounding error.
	return items[len(items)-1]
}
