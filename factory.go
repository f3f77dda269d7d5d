package cmdflow

import (
	"fmt"

	"github.com/google/uuid"
)

// Factory instantiates nodes from catalog templates.
type Factory struct {
	catalog *Catalog
	newID   func(Kind) string
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithIDFunc replaces the node ID generator.
func WithIDFunc(fn func(Kind) string) FactoryOption {
	return func(f *Factory) {
		f.newID = fn
	}
}

// NewFactory creates a Factory over the given catalog (DefaultCatalog if nil).
// IDs are "<kind>-<uuid>" unless overridden.
func NewFactory(c *Catalog, opts ...FactoryOption) *Factory {
	if c == nil {
		c = DefaultCatalog()
	}
	f := &Factory{
		catalog: c,
		newID: func(k Kind) string {
			return string(k) + "-" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Catalog returns the catalog the factory draws templates from.
func (f *Factory) Catalog() *Catalog { return f.catalog }

// CreateNode builds a node of the given kind from its default template.
// An empty category means the kind's own category.
func (f *Factory) CreateNode(kind Kind, category Category, pos Position) (Node, error) {
	t, err := f.catalog.Template(kind)
	if err != nil {
		return Node{}, err
	}
	if category != "" && category != t.Category {
		return Node{}, fmt.Errorf("%w: %s in %s", ErrCategoryMismatch, kind, category)
	}
	return f.FromTemplate(t, pos), nil
}

// FromTemplate builds a node from an explicit template.
func (f *Factory) FromTemplate(t Template, pos Position) Node {
	return Node{
		ID:          f.newID(t.Kind),
		Kind:        t.Kind,
		Category:    t.Category,
		Label:       t.Label,
		Position:    pos,
		Data:        t.Data.clone(),
		Connections: map[Socket][]string{},
	}
}
