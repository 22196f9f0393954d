package collection

import (
	"strconv"
	"strings"
)

// ServiceParameters are the per-service settings a persistence policy may
// consult, such as "store-by-group" or "rrd-base-name".
type ServiceParameters map[string]string

// Get returns the named parameter or def when it is unset.
func (p ServiceParameters) Get(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Bool returns the named parameter parsed as a boolean, or def when it is
// unset or malformed.
func (p ServiceParameters) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// PersistPolicy decides whether a normalized attribute is written to storage.
type PersistPolicy interface {
	ShouldPersist(a *Attribute, params ServiceParameters) bool
}

// PersistPolicyFunc adapts a function to PersistPolicy.
type PersistPolicyFunc func(a *Attribute, params ServiceParameters) bool

func (f PersistPolicyFunc) ShouldPersist(a *Attribute, params ServiceParameters) bool {
	return f(a, params)
}

// PersistAll persists every attribute, unknown values included.
var PersistAll PersistPolicy = PersistPolicyFunc(func(*Attribute, ServiceParameters) bool {
	return true
})
