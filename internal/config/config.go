package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kitforge/kit/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Recognized configuration keys.
const (
	KeyUsername       = "username"
	KeyCatalogURL     = "catalog_url"
	KeyRegistryURL    = "registry_url"
	KeyPackageRunner  = "package_runner"
	KeyCodemodsPath   = "codemods_path"
	KeyPackageManager = "package_manager"
	KeyLogLevel       = "log_level"
)

// Keys lists every key accepted by `kit config set`.
var Keys = []string{
	KeyUsername,
	KeyCatalogURL,
	KeyRegistryURL,
	KeyPackageRunner,
	KeyCodemodsPath,
	KeyPackageManager,
	KeyLogLevel,
}

// Settings is the resolved configuration handed to the services. It is built
// once at the process boundary so nothing below the CLI reads ambient state.
type Settings struct {
	Username       string
	CatalogURL     string
	RegistryURL    string
	PackageRunner  string
	CodemodsPath   string
	PackageManager string
	LogLevel       string
	CacheDir       string
}

// Dir returns the path to the config directory (~/.kit/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.kit/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyRegistryURL, branding.RegistryURL())
	viper.SetDefault(KeyPackageRunner, "npx --yes")
	viper.SetDefault(KeyPackageManager, "pnpm")
	viper.SetDefault(KeyLogLevel, "warn")

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Resolve snapshots the loaded configuration into a Settings value.
func Resolve() Settings {
	return Settings{
		Username:       strings.TrimSpace(Get(KeyUsername)),
		CatalogURL:     strings.TrimSpace(Get(KeyCatalogURL)),
		RegistryURL:    strings.TrimRight(Get(KeyRegistryURL), "/"),
		PackageRunner:  Get(KeyPackageRunner),
		CodemodsPath:   Get(KeyCodemodsPath),
		PackageManager: Get(KeyPackageManager),
		LogLevel:       Get(KeyLogLevel),
		CacheDir:       Dir(),
	}
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// IsKey reports whether key is a recognized configuration key.
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// SaveUsername persists the registry identity used for authenticated fetches.
func SaveUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username must not be empty")
	}
	return Set(KeyUsername, username)
}
