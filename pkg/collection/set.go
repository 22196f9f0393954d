package collection

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrDuplicateAttribute is returned when a resource already holds an
// attribute with the same name in the current cycle.
var ErrDuplicateAttribute = errors.New("duplicate attribute")

// Sample is a normalized attribute ready for the persistence engine.
type Sample struct {
	Resource Resource
	Name     string
	Type     string
	Metric   string
	Raw      string
	Value    Value
	Outcome  Outcome
	Persist  bool
}

// ResourceSet holds the attributes collected from one resource in one cycle.
// It is not safe for concurrent Add calls.
type ResourceSet struct {
	resource Resource
	attrs    []*Attribute
	names    map[string]struct{}
}

// NewResourceSet returns an empty set for resource.
func NewResourceSet(resource Resource) *ResourceSet {
	return &ResourceSet{
		resource: resource,
		names:    make(map[string]struct{}),
	}
}

func (s *ResourceSet) Resource() Resource { return s.resource }
func (s *ResourceSet) Len() int           { return len(s.attrs) }

// Add creates an attribute for raw and appends it to the set.
func (s *ResourceSet) Add(t *AttributeType, raw string, opts ...Option) (*Attribute, error) {
	if _, exists := s.names[t.Name()]; exists {
		return nil, fmt.Errorf("%w %q on resource %s", ErrDuplicateAttribute, t.Name(), s.resource)
	}
	a := NewAttribute(s.resource, t, raw, opts...)
	s.names[t.Name()] = struct{}{}
	s.attrs = append(s.attrs, a)
	return a, nil
}

// Attributes returns the attributes in insertion order.
func (s *ResourceSet) Attributes() []*Attribute {
	out := make([]*Attribute, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Normalize normalizes every attribute using at most workers goroutines
// (unbounded when workers <= 0) and returns the samples in insertion order.
// Only context cancellation can cause an error.
func (s *ResourceSet) Normalize(ctx context.Context, params ServiceParameters, workers int) ([]Sample, error) {
	samples := make([]Sample, len(s.attrs))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, a := range s.attrs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			samples[i] = Sample{
				Resource: s.resource,
				Name:     a.Name(),
				Type:     a.Type(),
				Metric:   a.MetricIdentifier(),
				Raw:      a.StringValue(),
				Value:    a.Value(),
				Outcome:  a.Outcome(),
				Persist:  a.ShouldPersist(params),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("normalize %s: %w", s.resource, err)
	}
	return samples, nil
}
