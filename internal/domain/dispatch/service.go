package dispatch

import (
	"slices"
	"strings"
)

// ServiceKind is an emergency service category.
type ServiceKind int

// Selectable emergency services.
const (
	Police ServiceKind = iota + 1
	Fire
	Medical
)

// String returns the lowercase service name.
func (k ServiceKind) String() string {
	switch k {
	case Police:
		return "police"
	case Fire:
		return "fire"
	case Medical:
		return "medical"
	default:
		return "unknown"
	}
}

// ServiceSet is an unordered set of services without duplicates.
type ServiceSet map[ServiceKind]struct{}

// NewServiceSet builds a set from kinds, dropping repeats.
func NewServiceSet(kinds ...ServiceKind) ServiceSet {
	set := make(ServiceSet, len(kinds))
	for _, k := range kinds {
		set.Add(k)
	}

	return set
}

// Add inserts k; adding an existing kind is a no-op.
func (s ServiceSet) Add(k ServiceKind) {
	s[k] = struct{}{}
}

// Has reports whether k is in the set.
func (s ServiceSet) Has(k ServiceKind) bool {
	_, ok := s[k]

	return ok
}

// Len returns the number of distinct services.
func (s ServiceSet) Len() int {
	return len(s)
}

// Kinds returns the services in a stable order.
func (s ServiceSet) Kinds() []ServiceKind {
	kinds := make([]ServiceKind, 0, len(s))
	for k := range s {
		kinds = append(kinds, k)
	}

	slices.Sort(kinds)

	return kinds
}

// Clone returns an independent copy of the set.
func (s ServiceSet) Clone() ServiceSet {
	cloned := make(ServiceSet, len(s))
	for k := range s {
		cloned[k] = struct{}{}
	}

	return cloned
}

// String joins the service names, e.g. "police, fire".
func (s ServiceSet) String() string {
	names := make([]string, 0, len(s))
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}

	return strings.Join(names, ", ")
}
