// Package locations holds the administrative location hierarchy
// (country, province, district, sector, cell, village) in memory.
package locations

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"notespace/api/internal/store"
)

const (
	TypeCountry  = "COUNTRY"
	TypeProvince = "PROVINCE"
	TypeDistrict = "DISTRICT"
	TypeSector   = "SECTOR"
	TypeCell     = "CELL"
	TypeVillage  = "VILLAGE"
)

var ErrNotFound = errors.New("location not found")

func ValidType(t string) bool {
	switch t {
	case TypeCountry, TypeProvince, TypeDistrict, TypeSector, TypeCell, TypeVillage:
		return true
	}
	return false
}

// Node is one location. Parent is empty for roots.
type Node struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Parent string `json:"parentCode,omitempty"`
}

// Tree is an arena of nodes keyed by code with a derived children index.
// Nodes reference their parent by code only.
type Tree struct {
	mu       sync.RWMutex
	nodes    map[string]Node
	children map[string][]string
	roots    []string
}

func NewTree() *Tree {
	return &Tree{nodes: map[string]Node{}, children: map[string][]string{}}
}

// Rebuild replaces the tree contents with rows. Rows whose parent is
// missing are treated as roots.
func (t *Tree) Rebuild(rows []store.Location) {
	nodes := make(map[string]Node, len(rows))
	for _, row := range rows {
		node := Node{Code: row.Code, Name: row.Name, Type: row.Type}
		if row.ParentCode != nil {
			node.Parent = *row.ParentCode
		}
		nodes[node.Code] = node
	}

	children := make(map[string][]string)
	roots := make([]string, 0)
	for code, node := range nodes {
		if _, ok := nodes[node.Parent]; node.Parent == "" || !ok {
			roots = append(roots, code)
			continue
		}
		children[node.Parent] = append(children[node.Parent], code)
	}
	byName := func(codes []string) {
		sort.Slice(codes, func(i, j int) bool {
			a, b := nodes[codes[i]], nodes[codes[j]]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.Code < b.Code
		})
	}
	byName(roots)
	for _, codes := range children {
		byName(codes)
	}

	t.mu.Lock()
	t.nodes, t.children, t.roots = nodes, children, roots
	t.mu.Unlock()
}

func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

func (t *Tree) Get(code string) (Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.nodes[code]
	if !ok {
		return Node{}, ErrNotFound
	}
	return node, nil
}

func (t *Tree) Exists(code string) bool {
	_, err := t.Get(code)
	return err == nil
}

func (t *Tree) Roots() []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.collect(t.roots)
}

// Children returns the direct children of code sorted by name.
func (t *Tree) Children(code string) ([]Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.nodes[code]; !ok {
		return nil, ErrNotFound
	}
	return t.collect(t.children[code]), nil
}

// Path returns the chain from the root down to code, inclusive.
func (t *Tree) Path(code string) ([]Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, ok := t.nodes[code]
	if !ok {
		return nil, ErrNotFound
	}
	path := []Node{node}
	seen := map[string]bool{code: true}
	for node.Parent != "" {
		parent, ok := t.nodes[node.Parent]
		if !ok {
			break
		}
		if seen[parent.Code] {
			return nil, fmt.Errorf("location cycle at %s", parent.Code)
		}
		seen[parent.Code] = true
		path = append(path, parent)
		node = parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// ByType lists every node of a type sorted by name.
func (t *Tree) ByType(locationType string) []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	items := make([]Node, 0)
	for _, node := range t.nodes {
		if node.Type == locationType {
			items = append(items, node)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Code < items[j].Code
	})
	return items
}

func (t *Tree) collect(codes []string) []Node {
	items := make([]Node, 0, len(codes))
	for _, code := range codes {
		items = append(items, t.nodes[code])
	}
	return items
}
