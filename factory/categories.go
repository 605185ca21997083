/*
Package factory provides configuration-file to Go category-map conversion.

PURPOSE:
  Converts YAML (or JSON) category definitions into an engine.CategoryMap.
  Category semantics are caller-supplied by design - the engine never
  invents them - so the grouping of products into reporting segments lives
  in a config file operators can edit without code changes.

YAML SCHEMA:
  categories:
    beverages:
      - P1
      - P2
    bakery:
      - P3

  Products listed under no category fall into the engine's
  "uncategorized" bucket at report time. A product listed under two
  categories is a parse error so config mistakes don't pass silently.

USAGE:
  categories, err := factory.LoadCategories("./categories.yaml")
  report := engine.ByCategory(ranking, categories, 5)

SEE ALSO:
  - engine/report.go: ByCategory, UncategorizedLabel
*/
package factory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sachifps/sell-smart-start-sub000/engine"
)

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// CategoriesFile is the on-disk representation: category label to the
// products it contains.
type CategoriesFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// =============================================================================
// LOADING
// =============================================================================

// LoadCategories reads and parses a category-map file.
func LoadCategories(path string) (engine.CategoryMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	return ParseCategories(data)
}

// ParseCategories parses YAML category definitions into the inverted
// product-to-category map the report pass consumes. A product appearing
// under more than one category is an error.
func ParseCategories(data []byte) (engine.CategoryMap, error) {
	var file CategoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid categories file: %w", err)
	}

	categories := make(engine.CategoryMap)
	for label, productIDs := range file.Categories {
		if label == "" {
			return nil, fmt.Errorf("empty category label")
		}
		for _, id := range productIDs {
			pid := engine.ProductID(id)
			if prev, ok := categories[pid]; ok && prev != label {
				return nil, fmt.Errorf("product %s assigned to both %q and %q", id, prev, label)
			}
			categories[pid] = label
		}
	}
	return categories, nil
}
