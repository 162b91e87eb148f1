// Package templates holds the built-in stylesheet snippets.
package templates

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var builtin []byte

// Catalog maps category → template name → stylesheet body. It is never
// mutated after construction; accessors hand out copies.
type Catalog struct {
	categories map[string]map[string]string
}

// Parse builds a Catalog from a YAML document of the form
// {category: {name: body}}.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing template catalog: %w", err)
	}
	if raw == nil {
		raw = map[string]map[string]string{}
	}
	for name, entries := range raw {
		if entries == nil {
			raw[name] = map[string]string{}
		}
	}
	return &Catalog{categories: raw}, nil
}

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(err)
	}
	return c
}

// ByCategory returns the templates of one category, or an empty map when
// the category is unknown.
func (c *Catalog) ByCategory(name string) map[string]string {
	entries, ok := c.categories[name]
	if !ok {
		return map[string]string{}
	}
	return maps.Clone(entries)
}

// All returns every category.
func (c *Catalog) All() map[string]map[string]string {
	out := make(map[string]map[string]string, len(c.categories))
	for name, entries := range c.categories {
		out[name] = maps.Clone(entries)
	}
	return out
}

// Categories returns the category names in sorted order.
func (c *Catalog) Categories() []string {
	return slices.Sorted(maps.Keys(c.categories))
}

// Names returns the template names of a category in sorted order.
func (c *Catalog) Names(category string) []string {
	return slices.Sorted(maps.Keys(c.categories[category]))
}
