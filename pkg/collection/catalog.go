package collection

import (
	"fmt"
	"sort"
)

// Group is a named collection of attribute types gathered together, such as
// all the values extracted from one XML document.
type Group struct {
	Name  string
	Types []*AttributeType
}

// Catalog is an immutable snapshot of the configured attribute types.
// Reloading configuration produces a new Catalog; attributes created from an
// older snapshot keep their original types.
type Catalog struct {
	groups []Group
	byName map[string]*AttributeType
	oids   map[string]string
}

// CatalogBuilder accumulates groups for a Catalog.
type CatalogBuilder struct {
	groups []Group
	byName map[string]*AttributeType
	oids   map[string]string
}

// NewCatalogBuilder returns an empty builder.
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{
		byName: make(map[string]*AttributeType),
		oids:   make(map[string]string),
	}
}

// AddGroup adds a group. Attribute names must be unique across the catalog
// because they name the archive's data sources.
func (b *CatalogBuilder) AddGroup(name string, types ...*AttributeType) error {
	for _, t := range types {
		if _, exists := b.byName[t.Name()]; exists {
			return fmt.Errorf("group %q: %w %q", name, ErrDuplicateAttribute, t.Name())
		}
		b.byName[t.Name()] = t
	}
	cp := make([]*AttributeType, len(types))
	copy(cp, types)
	b.groups = append(b.groups, Group{Name: name, Types: cp})
	return nil
}

// SetOID records the SNMP object identifier an attribute is fetched from.
func (b *CatalogBuilder) SetOID(name, oid string) {
	b.oids[name] = oid
}

// Build returns the immutable catalog. The builder must not be reused.
func (b *CatalogBuilder) Build() *Catalog {
	return &Catalog{groups: b.groups, byName: b.byName, oids: b.oids}
}

// Lookup returns the attribute type with the given name.
func (c *Catalog) Lookup(name string) (*AttributeType, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Len returns the number of attribute types.
func (c *Catalog) Len() int { return len(c.byName) }

// Groups returns the groups in declaration order.
func (c *Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Types returns every attribute type sorted by name.
func (c *Catalog) Types() []*AttributeType {
	out := make([]*AttributeType, 0, len(c.byName))
	for _, t := range c.byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// OIDs returns a copy of the attribute name to SNMP OID mapping.
func (c *Catalog) OIDs() map[string]string {
	out := make(map[string]string, len(c.oids))
	for k, v := range c.oids {
		out[k] = v
	}
	return out
}
