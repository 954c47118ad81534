// Package branding provides compile-time identity values for the CLI.
//
// branding.yaml is baked into the binary with //go:embed; forks edit it and
// rebuild to rename the tool, its home directory, and its environment prefix.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName        string `yaml:"cli_name"`
	DisplayName    string `yaml:"display_name"`
	Description    string `yaml:"description"`
	HomeDir        string `yaml:"home_dir"`
	EnvPrefix      string `yaml:"env_prefix"`
	GoModule       string `yaml:"go_module"`
	GitHubHost     string `yaml:"github_host"`
	RegistryURL    string `yaml:"registry_url"`
	CacheNamespace string `yaml:"cache_namespace"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			CLIName:        "kit",
			DisplayName:    "Kit",
			Description:    "Plugin and upstream sync manager for Kit SaaS projects",
			HomeDir:        ".kit",
			EnvPrefix:      "KIT",
			GoModule:       "github.com/kitforge/kit",
			GitHubHost:     "github.com",
			RegistryURL:    "https://registry.kitforge.dev/r",
			CacheNamespace: "kit",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "kit").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".kit").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "KIT").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// GitHubHost returns the host that template repositories live on.
func GitHubHost() string { load(); return defaults.GitHubHost }

// RegistryURL returns the default base URL of the plugin file registry.
func RegistryURL() string { load(); return defaults.RegistryURL }

// CacheNamespace returns the directory name used under node_modules/.cache.
func CacheNamespace() string { load(); return defaults.CacheNamespace }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "KIT_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
