// Package collection models the values gathered in one collection cycle and
// normalizes them for storage in a round-robin time-series archive.
package collection

import "strings"

// Class is the storage semantics resolved from an attribute type's kind.
type Class int

const (
	// ClassOther covers kinds that are neither counters nor gauges. Values are
	// formatted like gauges.
	ClassOther Class = iota
	// ClassGauge is an instantaneous value stored as a real number.
	ClassGauge
	// ClassCounter is a monotonically increasing value stored as an integer.
	ClassCounter
)

func (c Class) String() string {
	switch c {
	case ClassCounter:
		return "counter"
	case ClassGauge:
		return "gauge"
	default:
		return "other"
	}
}

// ParseClass resolves a declared kind such as "counter", "Counter64" or
// "gauge" to its Class. Matching is a case-insensitive prefix match.
func ParseClass(kind string) Class {
	k := strings.ToLower(kind)
	switch {
	case strings.HasPrefix(k, "counter"):
		return ClassCounter
	case strings.HasPrefix(k, "gauge"):
		return ClassGauge
	default:
		return ClassOther
	}
}

// AttributeType describes one collectable attribute. It is immutable and may
// be shared by any number of attributes and goroutines.
type AttributeType struct {
	name        string
	kind        string
	storageType string
	class       Class
}

// NewAttributeType creates an attribute type. An empty storageType defaults to
// kind. No validation is performed: an unrecognized kind resolves to ClassOther.
func NewAttributeType(name, kind, storageType string) *AttributeType {
	if storageType == "" {
		storageType = kind
	}
	return &AttributeType{
		name:        name,
		kind:        kind,
		storageType: storageType,
		class:       ParseClass(kind),
	}
}

func (t *AttributeType) Name() string        { return t.name }
func (t *AttributeType) Kind() string        { return t.kind }
func (t *AttributeType) StorageType() string { return t.storageType }
func (t *AttributeType) Class() Class        { return t.class }
