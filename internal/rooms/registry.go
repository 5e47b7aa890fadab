// Package rooms maps human location names to device zone identifiers.
package rooms

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownLocation is returned when a location has no zone mapping.
// It is a handled condition, not a crash: the device toggle handler
// reports it and issues no command.
var ErrUnknownLocation = errors.New("unknown location")

// Registry is an immutable location-to-zone mapping, fixed for the
// process lifetime. Lookups are case-insensitive and ignore spaces, so
// "Living Room" and "livingroom" resolve identically.
type Registry struct {
	zones map[string]int
}

// NewRegistry builds a registry from a name-to-zone map. The input is
// copied; later mutation of m does not affect the registry.
func NewRegistry(m map[string]int) *Registry {
	zones := make(map[string]int, len(m))
	for name, zone := range m {
		zones[normalize(name)] = zone
	}
	return &Registry{zones: zones}
}

// Zone resolves a location name to its device zone identifier.
func (r *Registry) Zone(name string) (int, error) {
	zone, ok := r.zones[normalize(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLocation, name)
	}
	return zone, nil
}

// Names returns the known location names, sorted, for prompt context
// and diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.zones))
	for name := range r.zones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of mapped locations.
func (r *Registry) Len() int {
	return len(r.zones)
}

func normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
}
