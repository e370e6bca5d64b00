package game

import (
	"fmt"
	"math"
)

// Diagnostic is one problem found in a catalog entry. Diagnostics are
// reported, never fatal: the entry stays in the catalog.
type Diagnostic struct {
	Index   int
	Key     string
	Problem string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("upgrade #%d (%q): %s", d.Index, d.Key, d.Problem)
}

// Validate checks every catalog entry as written in its source file.
// It has no side effects and can be called any number of times.
func (c *Catalog) Validate() []Diagnostic {
	var diags []Diagnostic
	seen := make(map[string]bool, len(c.specs))

	for i, spec := range c.specs {
		report := func(format string, args ...any) {
			diags = append(diags, Diagnostic{Index: i, Key: spec.Key, Problem: fmt.Sprintf(format, args...)})
		}

		if spec.Key == "" {
			report("missing key")
		} else if seen[spec.Key] {
			report("duplicate key")
		}
		seen[spec.Key] = true

		category, ok := ParseCategory(spec.Type)
		if !ok {
			report("missing or unknown type %q", spec.Type)
		}

		if spec.Price == nil {
			report("missing price")
		} else if price, ok := number(spec.Price); !ok || math.IsNaN(price) {
			report("price is not a number: %v", spec.Price)
		} else if price <= 0 || math.IsInf(price, 0) {
			report("price must be positive and finite, got %v", price)
		}

		switch category {
		case PerClick:
			checkEffect(spec.AddsPerClick, "adds_per_click", report)
		case PerSecond:
			checkEffect(spec.AddsPerSecond, "adds_per_second", report)
		}
	}
	return diags
}

func checkEffect(v any, field string, report func(string, ...any)) {
	f, ok := number(v)
	switch {
	case v == nil:
		report("missing %s", field)
	case !ok || math.IsNaN(f):
		report("%s is not a number: %v", field, v)
	case f <= 0 || math.IsInf(f, 0):
		report("%s must be positive and finite, got %v", field, f)
	}
}
