package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/platform"
)

const markerVersion = 1

// Marker is written into a project when it is created by the CLI.
type Marker struct {
	Version    int       `json:"version"`
	Variant    string    `json:"variant"`
	KitRepo    string    `json:"kit_repo"`
	CreatedAt  time.Time `json:"created_at"`
	CLIVersion string    `json:"cli_version"`
}

// MarkerPath returns the marker location for a project.
func MarkerPath(projectDir string) string {
	return filepath.Join(projectDir, "."+branding.CacheNamespace(), "config.json")
}

// WriteMarker records how the project was created.
func WriteMarker(projectDir, variant, kitRepo, cliVersion string, now time.Time) error {
	m := Marker{
		Version:    markerVersion,
		Variant:    variant,
		KitRepo:    kitRepo,
		CreatedAt:  now.UTC(),
		CLIVersion: cliVersion,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling marker: %w", err)
	}
	return platform.WriteFile(MarkerPath(projectDir), append(data, '\n'))
}

// ReadMarker returns the project's marker, or nil if there is none.
func ReadMarker(projectDir string) (*Marker, error) {
	data, err := os.ReadFile(MarkerPath(projectDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading marker: %w", err)
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing marker: %w", err)
	}
	return &m, nil
}
