// Package config manages user-level settings stored at ~/.kit/config.yaml.
// It loads the file and KIT_* environment overrides through Viper and resolves
// them into a Settings value (registry identity, registry and catalog URLs,
// codemod runner) that the CLI passes explicitly to the services.
package config
