// Package cli defines the Cobra command tree for the kit CLI. Each file
// registers one command group (plugins, project, new, mcp, etc.) with the
// root command. Commands resolve settings once, build the services from
// internal packages, and only handle flag parsing and output formatting.
package cli
