package catalog

import (
	"fmt"
	"io"
	"os"

	"coach-planner/internal/nutrition"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Ingredients []nutrition.IngredientData `yaml:"ingredients"`
}

// LoadYAML reads a seed document of the form
//
//	ingredients:
//	  - id: chicken
//	    name: Chicken Breast
//	    category: protein
//	    per_100g: {calories: 165, protein: 31, carbs: 0, fat: 3.6}
//	    serving_size: 150
//	    tags: [lean, poultry]
func LoadYAML(r io.Reader) (*Catalog, error) {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return New(nil)
		}
		return nil, fmt.Errorf("failed to decode ingredient seed: %w", err)
	}
	return New(seed.Ingredients)
}

// LoadYAMLFile reads a seed document from disk.
func LoadYAMLFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ingredient seed %s: %w", path, err)
	}
	defer f.Close()
	return LoadYAML(f)
}
