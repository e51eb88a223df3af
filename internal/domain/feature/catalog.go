package feature

import (
	"fmt"
	"strings"
)

// Catalog is an ordered, immutable set of feature definitions.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

// NewCatalog builds a catalog preserving the order of defs.
// It rejects empty or duplicate keys, empty names and unknown categories.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:  make([]Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		d.Key = strings.TrimSpace(d.Key)
		switch {
		case d.Key == "":
			return nil, fmt.Errorf("%w: definition %d has an empty key", ErrInvalidCatalog, i)
		case strings.TrimSpace(d.Name) == "":
			return nil, fmt.Errorf("%w: feature %q has an empty name", ErrInvalidCatalog, d.Key)
		case !d.Category.Valid():
			return nil, fmt.Errorf("%w: feature %q has unknown category %q", ErrInvalidCatalog, d.Key, d.Category)
		}
		if _, dup := c.index[d.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate feature key %q", ErrInvalidCatalog, d.Key)
		}
		c.index[d.Key] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultDefinitions()...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultDefinitions lists the features shipped with the service.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Key:         "registration_form",
			Name:        "Kayıt Formu",
			Description: "Etkinliğiniz için özelleştirilebilir kayıt formu oluşturun. Katılımcıların bilgilerini toplayın ve yönetin.",
			Category:    BeforeEvent,
		},
	}
}

// Definitions returns a copy of the definitions in catalog order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Lookup returns the definition registered under key.
func (c *Catalog) Lookup(key string) (Definition, bool) {
	i, ok := c.index[key]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// ByCategory returns the definitions of one category in catalog order.
func (c *Catalog) ByCategory(cat Category) []Definition {
	var out []Definition
	for _, d := range c.defs {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}
