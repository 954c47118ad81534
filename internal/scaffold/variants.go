package scaffold

import (
	_ "embed"
	"fmt"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/upstream"
)

//go:embed variants.yaml
var variantsYAML []byte

// VariantInfo describes a template variant.
type VariantInfo struct {
	ID          manifest.Variant `yaml:"id" json:"id"`
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description" json:"description"`
	Repo        string           `yaml:"-" json:"repo"`
	Tech        []string         `yaml:"tech" json:"tech"`
	Database    string           `yaml:"database" json:"database"`
	Auth        string           `yaml:"auth" json:"auth"`
	Status      string           `yaml:"status" json:"status"`
}

var (
	variantsOnce sync.Once
	variants     []VariantInfo
	variantsErr  error
)

func loadVariants() {
	var doc struct {
		Variants []VariantInfo `yaml:"variants"`
	}
	if err := yaml.Unmarshal(variantsYAML, &doc); err != nil {
		variantsErr = fmt.Errorf("parsing embedded variants: %w", err)
		return
	}
	for i := range doc.Variants {
		repo, ok := upstream.Repo(doc.Variants[i].ID)
		if !ok {
			variantsErr = fmt.Errorf("variant %q has no template repository", doc.Variants[i].ID)
			return
		}
		doc.Variants[i].Repo = repo
	}
	variants = doc.Variants
}

// Variants returns the template variants in display order.
func Variants() []VariantInfo {
	variantsOnce.Do(loadVariants)
	if variantsErr != nil {
		panic(variantsErr)
	}
	out := make([]VariantInfo, len(variants))
	copy(out, variants)
	return out
}
