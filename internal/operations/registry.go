package operations

import (
	"fmt"
	"sync"

	"bspub/internal/catalog"
)

// Destination is one place outputs are written: an Excel workbook shared by
// every group naming it, or the CSV directory of a single group.
type Destination struct {
	Key      string
	Workbook string
	Groups   []*catalog.Group
}

// IsWorkbook reports whether the destination is an Excel workbook.
func (d *Destination) IsWorkbook() bool {
	return d.Workbook != ""
}

// Outputs returns the number of outputs written to the destination.
func (d *Destination) Outputs() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Outputs)
	}
	return n
}

// Registry holds the destinations of a run in the order their first group
// was registered.
type Registry struct {
	mu           sync.RWMutex
	destinations map[string]*Destination
	groups       map[string]bool
	order        []string
}

// NewRegistry creates an empty destination registry
func NewRegistry() *Registry {
	return &Registry{
		destinations: make(map[string]*Destination),
		groups:       make(map[string]bool),
		order:        make([]string, 0),
	}
}

// destinationKey identifies where a group writes.
func destinationKey(g *catalog.Group) string {
	if g.IsCSV() {
		return "csv:" + g.Name
	}
	return "workbook:" + g.Workbook
}

// Register adds a group to its destination, creating the destination when
// it is the first group to write there.
func (r *Registry) Register(g *catalog.Group) error {
	if g == nil {
		return fmt.Errorf("cannot register nil group")
	}
	if g.Name == "" {
		return fmt.Errorf("group name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.groups[g.Name] {
		return NewValidationError(g.Name, fmt.Sprintf("group %s already registered", g.Name))
	}
	r.groups[g.Name] = true

	key := destinationKey(g)
	d, exists := r.destinations[key]
	if !exists {
		d = &Destination{Key: key, Workbook: g.Workbook}
		r.destinations[key] = d
		r.order = append(r.order, key)
	}
	d.Groups = append(d.Groups, g)
	return nil
}

// Get retrieves a destination by key
func (r *Registry) Get(key string) (*Destination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.destinations[key]
	if !exists {
		return nil, fmt.Errorf("destination %s not found", key)
	}
	return d, nil
}

// Has checks if a destination is registered
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.destinations[key]
	return exists
}

// List returns all destinations in registration order
func (r *Registry) List() []*Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Destination, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.destinations[key])
	}
	return out
}

// Count returns the number of destinations
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Plan registers every group of the catalog in catalog order.
func Plan(c *catalog.Catalog) (*Registry, error) {
	r := NewRegistry()
	for i := range c.Groups {
		if err := r.Register(&c.Groups[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}
