// Package idmap holds the in-process maps that join legacy rows to
// destination records during a run. Nothing here is persisted.
package idmap

import (
	"sort"
	"strconv"
	"sync"

	"github.com/tene/catalog-import/internal/types"
)

// CategoryIDMap maps legacy category ids to destination category ids.
// It is safe for concurrent use.
type CategoryIDMap struct {
	mu  sync.RWMutex
	ids map[int32]int32
}

// NewCategoryIDMap creates an empty map
func NewCategoryIDMap() *CategoryIDMap {
	return &CategoryIDMap{ids: make(map[int32]int32)}
}

// Set records that legacy id oldID was created as newID
func (m *CategoryIDMap) Set(oldID, newID int32) {
	m.mu.Lock()
	m.ids[oldID] = newID
	m.mu.Unlock()
}

// SetIfAbsent records the mapping only when oldID is not mapped yet and
// reports whether it did so.
func (m *CategoryIDMap) SetIfAbsent(oldID, newID int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[oldID]; ok {
		return false
	}
	m.ids[oldID] = newID
	return true
}

// Get returns the destination id for a legacy id
func (m *CategoryIDMap) Get(oldID int32) (int32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ids[oldID]
	return id, ok
}

// Len returns the number of mapped categories
func (m *CategoryIDMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Snapshot returns a copy of the mapping
func (m *CategoryIDMap) Snapshot() map[int32]int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int32]int32, len(m.ids))
	for k, v := range m.ids {
		out[k] = v
	}
	return out
}

// Pair is one old→new entry
type Pair struct {
	OldID int32 `json:"oldId"`
	NewID int32 `json:"newId"`
}

// Pairs returns the mapping sorted by legacy id
func (m *CategoryIDMap) Pairs() []Pair {
	snap := m.Snapshot()
	out := make([]Pair, 0, len(snap))
	for k, v := range snap {
		out = append(out, Pair{OldID: k, NewID: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OldID < out[j].OldID })
	return out
}

// LinkCatMap maps a product join key to a legacy category id.
// It is built once before product import and only read afterwards.
type LinkCatMap map[string]int32

// BuildLinkCatMap indexes categories by their link_cat key. Empty and "0"
// keys are ignored; a later row with the same key overwrites an earlier one.
func BuildLinkCatMap(rows []types.LegacyCategoryRow) LinkCatMap {
	m := make(LinkCatMap, len(rows))
	for _, r := range rows {
		if r.LinkCat == "" || r.LinkCat == "0" {
			continue
		}
		m[r.LinkCat] = r.ID
	}
	return m
}

// Resolve walks keys in order and returns the legacy category id of the first hit
func (m LinkCatMap) Resolve(keys ...string) (int32, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if id, ok := m[k]; ok {
			return id, true
		}
	}
	return 0, false
}

// String renders a pair for log output
func (p Pair) String() string {
	return strconv.Itoa(int(p.OldID)) + "->" + strconv.Itoa(int(p.NewID))
}
