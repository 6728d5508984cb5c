// Package catalog serves the option values for every directory filter field.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed options.yaml
var optionsYAML []byte

// Option is one selectable filter value.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Field is a filter field and its options.
type Field struct {
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases,omitempty" json:"-"`
	Range   bool     `yaml:"range,omitempty" json:"range,omitempty"`
	Values  []string `yaml:"options" json:"-"`
}

// Options returns the field's values as label/value pairs.
func (f Field) Options() []Option {
	out := make([]Option, len(f.Values))
	for i, v := range f.Values {
		out[i] = Option{Label: v, Value: v}
	}
	return out
}

// Catalog holds the fields of each entity, in display order.
type Catalog struct {
	Investors []Field `yaml:"investors"`
	Funds     []Field `yaml:"funds"`
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, fields := range [][]Field{c.Investors, c.Funds} {
		seen := make(map[string]bool)
		for _, f := range fields {
			for _, name := range append([]string{f.Name}, f.Aliases...) {
				key := normalize(name)
				if seen[key] {
					return nil, fmt.Errorf("parse catalog: duplicate field %q", name)
				}
				seen[key] = true
			}
		}
	}
	return &c, nil
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Parse(optionsYAML)
})

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return loadDefault()
}

// Fields lists the fields of entity. The entity accepts the same names as
// the directory routes.
func (c *Catalog) Fields(entity string) ([]Field, bool) {
	switch normalize(entity) {
	case "investors", "investor":
		return c.Investors, true
	case "funds", "fund", "investment_funds":
		return c.Funds, true
	}
	return nil, false
}

// Field looks up one field of entity by name or alias. Hyphens and
// underscores are interchangeable.
func (c *Catalog) Field(entity, name string) (Field, bool) {
	fields, ok := c.Fields(entity)
	if !ok {
		return Field{}, false
	}
	want := normalize(name)
	for _, f := range fields {
		if normalize(f.Name) == want {
			return f, true
		}
		for _, a := range f.Aliases {
			if normalize(a) == want {
				return f, true
			}
		}
	}
	return Field{}, false
}

// Options returns the options of one field.
func (c *Catalog) Options(entity, name string) ([]Option, bool) {
	f, ok := c.Field(entity, name)
	if !ok {
		return nil, false
	}
	return f.Options(), true
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
