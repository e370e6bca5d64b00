/*
Package game
File: catalog.go
Description:
    Loads the static upgrade catalog from YAML.
    The default catalog ships embedded in the binary; a file on disk
    can replace it through the server config.
*/

package game

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// upgradeSpec is one catalog entry exactly as written in the file.
// Numbers stay untyped so the validator can tell missing, non-numeric
// and zero apart.
type upgradeSpec struct {
	Key           string `yaml:"key"`
	Type          string `yaml:"type"`
	Price         any    `yaml:"price"`
	AddsPerClick  any    `yaml:"adds_per_click"`
	AddsPerSecond any    `yaml:"adds_per_second"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
}

type catalogFile struct {
	Upgrades []upgradeSpec `yaml:"upgrades"`
}

// Catalog is the ordered, immutable list of upgrade definitions.
type Catalog struct {
	upgrades []Upgrade
	specs    []upgradeSpec
	index    map[string]int
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog(currency string) (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML, currency)
}

// LoadCatalog reads a catalog file from disk.
func LoadCatalog(path, currency string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data, currency)
}

// ParseCatalog decodes catalog YAML. Only a document that cannot be decoded at
// all is an error; malformed entries are kept and reported by Validate.
func ParseCatalog(data []byte, currency string) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		upgrades: make([]Upgrade, 0, len(file.Upgrades)),
		specs:    file.Upgrades,
		index:    make(map[string]int, len(file.Upgrades)),
	}
	for _, spec := range file.Upgrades {
		u := spec.upgrade(currency)
		if _, dup := c.index[u.Key]; u.Key != "" && !dup {
			c.index[u.Key] = len(c.upgrades)
		}
		c.upgrades = append(c.upgrades, u)
	}
	return c, nil
}

func (s upgradeSpec) upgrade(currency string) Upgrade {
	category, _ := ParseCategory(s.Type)
	u := Upgrade{
		Key:         s.Key,
		Category:    category,
		BasePrice:   valueOrNaN(s.Price),
		Effect:      math.NaN(),
		Title:       s.Title,
		Description: strings.ReplaceAll(s.Description, "{currency}", currency),
	}
	switch category {
	case PerClick:
		u.Effect = valueOrNaN(s.AddsPerClick)
	case PerSecond:
		u.Effect = valueOrNaN(s.AddsPerSecond)
	}
	return u
}

func valueOrNaN(v any) float64 {
	if f, ok := number(v); ok {
		return f
	}
	return math.NaN()
}

// number reports the float value of a decoded YAML scalar.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Upgrades returns the definitions in catalog order.
func (c *Catalog) Upgrades() []Upgrade {
	out := make([]Upgrade, len(c.upgrades))
	copy(out, c.upgrades)
	return out
}

// Lookup finds an upgrade by key. The first entry wins when keys repeat.
func (c *Catalog) Lookup(key string) (Upgrade, bool) {
	i, ok := c.index[key]
	if !ok {
		return Upgrade{}, false
	}
	return c.upgrades[i], true
}

// Len returns the number of entries, malformed ones included.
func (c *Catalog) Len() int {
	return len(c.upgrades)
}
