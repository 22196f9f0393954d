package testutil

import (
	"github.com/HerbHall/netcollect/pkg/collection"
)

// NewResource returns a Resource with sensible defaults, suitable for test
// fixtures. Override individual fields with options.
func NewResource(opts ...func(*collection.Resource)) collection.Resource {
	r := collection.Resource{
		ID:    collection.NewResourceID(),
		Type:  "node",
		Label: "test-node",
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithResourceID sets the resource id.
func WithResourceID(id string) func(*collection.Resource) {
	return func(r *collection.Resource) { r.ID = collection.ResourceID(id) }
}

// WithInstance sets the resource type and instance, e.g. ("interface", "eth0").
func WithInstance(typ, instance string) func(*collection.Resource) {
	return func(r *collection.Resource) {
		r.Type = typ
		r.Instance = instance
	}
}

// WithLabel sets the resource label.
func WithLabel(label string) func(*collection.Resource) {
	return func(r *collection.Resource) { r.Label = label }
}

// NewCatalog returns a catalog with one counter and one gauge group:
// "interfaces" (ifInOctets, ifOutOctets as counters) and "system"
// (load, temperature as gauges).
func NewCatalog() *collection.Catalog {
	b := collection.NewCatalogBuilder()
	_ = b.AddGroup("interfaces",
		collection.NewAttributeType("ifInOctets", "counter", "Counter64"),
		collection.NewAttributeType("ifOutOctets", "counter", "Counter64"),
	)
	_ = b.AddGroup("system",
		collection.NewAttributeType("load", "gauge", ""),
		collection.NewAttributeType("temperature", "gauge", "Gauge32"),
	)
	b.SetOID("ifInOctets", ".1.3.6.1.2.1.31.1.1.1.6.1")
	b.SetOID("ifOutOctets", ".1.3.6.1.2.1.31.1.1.1.10.1")
	return b.Build()
}
