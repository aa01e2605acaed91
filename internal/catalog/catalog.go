// Package catalog holds the static keyword configuration that maps product
// categories to their product keywords and evaluation words, and implements
// the rule-based classifier over it.
//
// The catalog is loaded once per process from a JSON file and is read-only
// afterwards. Structural problems (missing file, category without product
// keywords) are startup-time fatal configuration errors, never runtime
// branches.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Category is one product category with its keyword sets. Complex products
// are multi-word or compound names ("咖啡機") checked before single products
// ("杯"); category-specific evaluation words qualify sentiment about the
// category's products.
type Category struct {
	Name            string   `json:"name"`
	ComplexProducts []string `json:"complex_products"`
	SingleProducts  []string `json:"single_products"`
	EvaluationWords []string `json:"evaluation_words"`
}

// Catalog is the full keyword configuration. CommonEvaluationWords apply to
// every category.
type Catalog struct {
	Categories            []Category `json:"categories"`
	CommonEvaluationWords []string   `json:"common_evaluation_words"`
}

// Load reads and validates a catalog from a JSON file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the structural invariants of the catalog. A catalog that
// fails validation must not be served; callers treat the error as fatal.
func (c *Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("catalog: no categories defined")
	}
	seen := make(map[string]struct{}, len(c.Categories))
	for i, cat := range c.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return fmt.Errorf("catalog: category %d has an empty name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("catalog: duplicate category %q", name)
		}
		seen[name] = struct{}{}
		if len(cat.ComplexProducts)+len(cat.SingleProducts) == 0 {
			return fmt.Errorf("catalog: category %q has no product keywords", name)
		}
		for _, kw := range cat.ComplexProducts {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("catalog: category %q has a blank complex-product keyword", name)
			}
		}
		for _, kw := range cat.SingleProducts {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("catalog: category %q has a blank single-product keyword", name)
			}
		}
	}
	return nil
}
