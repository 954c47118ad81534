package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// ParseCatalog parses a catalog document. YAML and JSON are both accepted.
// The document is validated against the catalog schema first.
func ParseCatalog(data []byte) (*Catalog, error) {
	res, err := ValidateCatalog(data)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, res.Err("catalog")
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return &c, nil
}

// ParseCatalogFile reads and parses a catalog file.
func ParseCatalogFile(path string) (*Catalog, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseRegistryItem parses and validates a registry item JSON payload.
func ParseRegistryItem(data []byte) (*RegistryItem, error) {
	res, err := ValidateRegistryItem(data)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, res.Err("registry item")
	}

	var item RegistryItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("parsing registry item: %w", err)
	}
	return &item, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
