// Package typeconf loads attribute type definitions from YAML and keeps the
// current catalog snapshot for hot reload.
package typeconf

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/HerbHall/netcollect/pkg/collection"
)

//go:embed default_types.yaml
var defaultTypes []byte

// ErrInvalid is returned for structurally invalid definition files.
var ErrInvalid = errors.New("invalid attribute type definitions")

// file is the top-level structure of a definitions file.
type file struct {
	Groups []groupDef `yaml:"groups"`
}

type groupDef struct {
	Name       string         `yaml:"name"`
	Attributes []attributeDef `yaml:"attributes"`
}

type attributeDef struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Storage string `yaml:"storage"`
	OID     string `yaml:"oid"`
}

// Parse builds a catalog from YAML definitions.
func Parse(data []byte) (*collection.Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("typeconf: parse yaml: %w", err)
	}

	b := collection.NewCatalogBuilder()
	for gi, g := range f.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return nil, fmt.Errorf("typeconf: group %d: %w: missing name", gi, ErrInvalid)
		}
		types := make([]*collection.AttributeType, 0, len(g.Attributes))
		for ai, a := range g.Attributes {
			if strings.TrimSpace(a.Name) == "" {
				return nil, fmt.Errorf("typeconf: group %q attribute %d: %w: missing name", g.Name, ai, ErrInvalid)
			}
			types = append(types, collection.NewAttributeType(a.Name, a.Type, a.Storage))
		}
		if err := b.AddGroup(g.Name, types...); err != nil {
			return nil, fmt.Errorf("typeconf: %w", err)
		}
		for _, a := range g.Attributes {
			if a.OID != "" {
				b.SetOID(a.Name, a.OID)
			}
		}
	}
	return b.Build(), nil
}

// LoadFile reads and parses the definitions at path. An empty path selects
// the built-in definitions.
func LoadFile(path string) (*collection.Catalog, error) {
	if path == "" {
		return Parse(defaultTypes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("typeconf: read %q: %w", path, err)
	}
	return Parse(data)
}

// Registry holds the active catalog. Reload swaps in a new snapshot; catalogs
// and attribute types already handed out are never modified.
type Registry struct {
	path    string
	logger  *zap.Logger
	current atomic.Pointer[collection.Catalog]
}

// NewRegistry loads the definitions at path and returns a Registry serving them.
func NewRegistry(path string, logger *zap.Logger) (*Registry, error) {
	cat, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	r := &Registry{path: path, logger: logger}
	r.current.Store(cat)
	return r, nil
}

// Current returns the active catalog.
func (r *Registry) Current() *collection.Catalog {
	return r.current.Load()
}

// Reload re-reads the definitions file. On error the active catalog is kept.
func (r *Registry) Reload() error {
	cat, err := LoadFile(r.path)
	if err != nil {
		r.logger.Warn("attribute type reload failed, keeping current definitions",
			zap.String("path", r.path), zap.Error(err))
		return err
	}
	r.current.Store(cat)
	r.logger.Info("attribute types reloaded",
		zap.String("path", r.path), zap.Int("types", cat.Len()))
	return nil
}
