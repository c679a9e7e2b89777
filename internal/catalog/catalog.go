// Package catalog holds the static LeetCode reference lists: problem
// categories, topic tags and programming language slugs.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Catalog is the parsed dataset. Lists keep file order.
type Catalog struct {
	Categories []string `yaml:"categories"`
	Tags       []string `yaml:"tags"`
	Langs      []string `yaml:"langs"`
}

// Parse decodes a YAML dataset. Every list must be present and free of
// empty or duplicate entries.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	for name, list := range map[string][]string{"categories": c.Categories, "tags": c.Tags, "langs": c.Langs} {
		if err := checkList(list); err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", name, err)
		}
	}
	return &c, nil
}

func checkList(list []string) error {
	if len(list) == 0 {
		return errors.New("list is empty")
	}
	seen := make(map[string]struct{}, len(list))
	for i, v := range list {
		if v == "" {
			return fmt.Errorf("entry %d is empty", i)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("duplicate entry %q", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// Embedded returns the raw dataset compiled into the binary.
func Embedded() []byte {
	return slices.Clone(embedded)
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Parse(embedded)
})

// Default returns the parsed embedded dataset.
func Default() (*Catalog, error) {
	return loadDefault()
}

func (c *Catalog) HasCategory(v string) bool { return slices.Contains(c.Categories, v) }
func (c *Catalog) HasTag(v string) bool      { return slices.Contains(c.Tags, v) }
func (c *Catalog) HasLang(v string) bool     { return slices.Contains(c.Langs, v) }
