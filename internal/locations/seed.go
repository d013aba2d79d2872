package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"notespace/api/internal/store"
)

// Store is the persistence the loader needs.
type Store interface {
	ListLocations(ctx context.Context) ([]store.Location, error)
	CountLocationsByType(ctx context.Context, locationType string) (int, error)
	ReplaceLocations(ctx context.Context, nodes []store.Location) error
}

// SeedNode is one entry of the nested JSON seed file.
type SeedNode struct {
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Children []SeedNode `json:"children"`
}

// ReadSeedFile decodes a seed file and flattens it parents first.
func ReadSeedFile(path string) ([]store.Location, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var roots []SeedNode
	if err := json.Unmarshal(raw, &roots); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return Flatten(roots)
}

// Flatten walks the seed depth first so every parent precedes its children.
// Codes must be unique and types known.
func Flatten(roots []SeedNode) ([]store.Location, error) {
	out := make([]store.Location, 0)
	seen := make(map[string]bool)

	var walk func(nodes []SeedNode, parent *string) error
	walk = func(nodes []SeedNode, parent *string) error {
		for _, n := range nodes {
			code := strings.TrimSpace(n.Code)
			if code == "" {
				return fmt.Errorf("location %q has no code", n.Name)
			}
			if seen[code] {
				return fmt.Errorf("duplicate location code %s", code)
			}
			locType := strings.ToUpper(strings.TrimSpace(n.Type))
			if !ValidType(locType) {
				return fmt.Errorf("location %s has unknown type %q", code, n.Type)
			}
			seen[code] = true
			out = append(out, store.Location{Code: code, Name: strings.TrimSpace(n.Name), Type: locType, ParentCode: parent})

			c := code
			if err := walk(n.Children, &c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(roots, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// Loader keeps the persisted table and the in-memory tree in sync.
type Loader struct {
	store Store
	tree  *Tree
	log   zerolog.Logger
}

func NewLoader(s Store, tree *Tree, logger zerolog.Logger) *Loader {
	return &Loader{store: s, tree: tree, log: logger.With().Str("component", "locations").Logger()}
}

// Bootstrap reloads the table from seedPath when it holds no VILLAGE rows,
// then rebuilds the tree. An empty seedPath skips the import.
func (l *Loader) Bootstrap(ctx context.Context, seedPath string) error {
	if seedPath != "" {
		villages, err := l.store.CountLocationsByType(ctx, TypeVillage)
		if err != nil {
			return err
		}
		if villages == 0 {
			nodes, err := ReadSeedFile(seedPath)
			if err != nil {
				return err
			}
			if err := l.store.ReplaceLocations(ctx, nodes); err != nil {
				return fmt.Errorf("import locations: %w", err)
			}
			l.log.Info().Int("nodes", len(nodes)).Str("seed", seedPath).Msg("locations imported")
		}
	}
	return l.Reload(ctx)
}

// Reload rebuilds the tree from the persisted rows.
func (l *Loader) Reload(ctx context.Context) error {
	rows, err := l.store.ListLocations(ctx)
	if err != nil {
		return err
	}
	l.tree.Rebuild(rows)
	l.log.Debug().Int("nodes", len(rows)).Msg("location tree rebuilt")
	return nil
}
