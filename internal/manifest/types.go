package manifest

import (
	"fmt"
	"sort"
)

// Variant identifies a project flavor (tech-stack combination). It selects
// which plugins apply and which template repository is upstream.
type Variant string

// Known variants.
const (
	VariantNextSupabase        Variant = "next-supabase"
	VariantNextDrizzle         Variant = "next-drizzle"
	VariantNextPrisma          Variant = "next-prisma"
	VariantReactRouterSupabase Variant = "react-router-supabase"
)

// Variants contains all valid variant values.
var Variants = []Variant{
	VariantNextSupabase,
	VariantNextDrizzle,
	VariantNextPrisma,
	VariantReactRouterSupabase,
}

// ParseVariant validates a variant identifier.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown variant %q", s)
}

// EnvVar is an environment variable a plugin needs in a given variant.
type EnvVar struct {
	Key          string `yaml:"key" json:"key"`
	Description  string `yaml:"description" json:"description"`
	DefaultValue string `yaml:"defaultValue,omitempty" json:"defaultValue,omitempty"`
}

// VariantConfig is the per-variant part of a plugin definition.
type VariantConfig struct {
	EnvVars []EnvVar `yaml:"envVars" json:"envVars"`
	Path    string   `yaml:"path,omitempty" json:"path,omitempty"`
}

// PluginDefinition describes an installable plugin. The Variants map is the
// lookup table of variants the plugin is offered for.
type PluginDefinition struct {
	ID                 string                    `yaml:"id" json:"id"`
	Name               string                    `yaml:"name" json:"name"`
	Description        string                    `yaml:"description" json:"description"`
	Variants           map[Variant]VariantConfig `yaml:"variants" json:"variants"`
	PostInstallMessage string                    `yaml:"postInstallMessage,omitempty" json:"postInstallMessage,omitempty"`
}

// Supports reports whether the plugin is offered for v.
func (p PluginDefinition) Supports(v Variant) bool {
	_, ok := p.Variants[v]
	return ok
}

// EnvVars returns the env vars declared for v, or nil.
func (p PluginDefinition) EnvVars(v Variant) []EnvVar {
	return p.Variants[v].EnvVars
}

// Path returns the plugin's install path for v, or "".
func (p PluginDefinition) Path(v Variant) string {
	return p.Variants[v].Path
}

// SupportedVariants returns the variants the plugin is offered for, sorted.
func (p PluginDefinition) SupportedVariants() []Variant {
	out := make([]Variant, 0, len(p.Variants))
	for v := range p.Variants {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Catalog is the ordered list of plugin definitions served by a catalog URL
// or bundled into the binary.
type Catalog struct {
	Plugins []PluginDefinition `yaml:"plugins" json:"plugins"`
}

// RegistryFile is one file of a plugin payload. Target is the destination
// relative to the project root.
type RegistryFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Target  string `json:"target"`
}

// RegistryItem is the payload for one (variant, plugin) pair.
type RegistryItem struct {
	Name         string            `json:"name"`
	Version      string            `json:"version,omitempty"`
	Files        []RegistryFile    `json:"files"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// ContentByTarget indexes the item's file contents by target path.
func (r *RegistryItem) ContentByTarget() map[string]string {
	m := make(map[string]string, len(r.Files))
	for _, f := range r.Files {
		m[f.Target] = f.Content
	}
	return m
}

// DependencySpecs returns "name@range" pairs sorted by name.
func (r *RegistryItem) DependencySpecs() []string {
	names := make([]string, 0, len(r.Dependencies))
	for name := range r.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]string, 0, len(names))
	for _, name := range names {
		specs = append(specs, name+"@"+r.Dependencies[name])
	}
	return specs
}
