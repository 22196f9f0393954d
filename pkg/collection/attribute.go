package collection

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultSource is the metric identifier prefix used when none is configured.
const DefaultSource = "xml"

// Observer is notified once per attribute with the normalization result.
type Observer func(class Class, outcome Outcome)

// Option configures an Attribute.
type Option func(*Attribute)

// WithLogger sets the logger that receives normalization diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(a *Attribute) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithPersistPolicy replaces the default PersistAll policy.
func WithPersistPolicy(p PersistPolicy) Option {
	return func(a *Attribute) {
		if p != nil {
			a.policy = p
		}
	}
}

// WithObserver registers a callback invoked when the value is first normalized.
func WithObserver(o Observer) Option {
	return func(a *Attribute) { a.observer = o }
}

// WithSource sets the collector source used by MetricIdentifier.
func WithSource(source string) Option {
	return func(a *Attribute) {
		if source != "" {
			a.source = source
		}
	}
}

// Attribute binds one raw value to its attribute type and resource. It is
// immutable; the normalized value is computed on first use and cached.
type Attribute struct {
	resource Resource
	attrType *AttributeType
	raw      string

	logger   *zap.Logger
	policy   PersistPolicy
	observer Observer
	source   string

	once    sync.Once
	value   Value
	outcome Outcome
}

// NewAttribute creates an attribute for raw collected from resource.
func NewAttribute(resource Resource, attrType *AttributeType, raw string, opts ...Option) *Attribute {
	a := &Attribute{
		resource: resource,
		attrType: attrType,
		raw:      raw,
		logger:   zap.NewNop(),
		policy:   PersistAll,
		source:   DefaultSource,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Attribute) AttributeType() *AttributeType { return a.attrType }
func (a *Attribute) Resource() Resource            { return a.resource }
func (a *Attribute) Name() string                  { return a.attrType.Name() }

// Type returns the storage type tag of the attribute type.
func (a *Attribute) Type() string { return a.attrType.StorageType() }

// StringValue returns the raw value as collected.
func (a *Attribute) StringValue() string { return a.raw }

// NumericValue returns the normalized value in archive format, or
// SentinelUnknown when the raw value holds no usable number.
func (a *Attribute) NumericValue() string {
	return a.Value().String()
}

// Value returns the normalized value.
func (a *Attribute) Value() Value {
	a.once.Do(a.normalize)
	return a.value
}

// Outcome reports how the value was normalized.
func (a *Attribute) Outcome() Outcome {
	a.once.Do(a.normalize)
	return a.outcome
}

// ShouldPersist reports whether the attribute should be written to storage.
func (a *Attribute) ShouldPersist(params ServiceParameters) bool {
	return a.policy.ShouldPersist(a, params)
}

// MetricIdentifier returns the source-qualified metric name, e.g. "XML_ifInOctets".
func (a *Attribute) MetricIdentifier() string {
	return strings.ToUpper(a.source) + "_" + a.Name()
}

func (a *Attribute) String() string {
	return a.Name() + "=" + a.raw
}

func (a *Attribute) normalize() {
	class := a.attrType.Class()
	a.value, a.outcome = Normalize(a.raw, class)

	switch a.outcome {
	case OutcomeRecovered:
		a.logger.Debug("value is not a valid number, recovered after removing units",
			zap.String("attribute", a.Name()),
			zap.String("raw", a.raw),
			zap.String("normalized", a.value.String()),
		)
	case OutcomeUnknown:
		a.logger.Warn("value is not parsable as a number, storing unknown",
			zap.String("attribute", a.Name()),
			zap.String("raw", a.raw),
		)
	}

	if a.observer != nil {
		a.observer(class, a.outcome)
	}
}
