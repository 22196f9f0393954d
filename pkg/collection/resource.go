package collection

import "github.com/google/uuid"

// ResourceID identifies a collection resource. The normalizer never
// dereferences it; it is passed through to the persistence layer.
type ResourceID string

// NewResourceID returns a random resource identifier.
func NewResourceID() ResourceID {
	return ResourceID(uuid.New().String())
}

// Resource is the entity a set of attributes was collected from, such as a
// node or one of its interfaces. Its lifetime is managed by the caller.
type Resource struct {
	ID       ResourceID `json:"id"`
	Type     string     `json:"type,omitempty"`
	Instance string     `json:"instance,omitempty"`
	Label    string     `json:"label,omitempty"`
}

func (r Resource) String() string {
	if r.Label != "" {
		return r.Label
	}
	return string(r.ID)
}
