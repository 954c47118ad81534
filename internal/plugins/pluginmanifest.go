package plugins

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/platform"
)

// ManifestEntry records one installed plugin.
type ManifestEntry struct {
	PluginID    string           `json:"pluginId"`
	Version     string           `json:"version"`
	Variant     manifest.Variant `json:"variant"`
	InstalledAt time.Time        `json:"installedAt"`
	Source      string           `json:"source,omitempty"`
}

// Manifest is the project's record of installed plugins.
type Manifest struct {
	Plugins []ManifestEntry `json:"plugins"`
}

// ManifestPath returns the location of the plugin manifest in a project.
func ManifestPath(projectDir string) string {
	return filepath.Join(projectDir, "."+branding.CacheNamespace()+"-plugins.json")
}

// ReadManifest loads the plugin manifest. A missing file yields an empty one.
func ReadManifest(projectDir string) (*Manifest, error) {
	data, err := platform.ReadOptional(ManifestPath(projectDir))
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if data == nil {
		return m, nil
	}
	if err := json.Unmarshal([]byte(*data), m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(ManifestPath(projectDir)), err)
	}
	return m, nil
}

// Entry returns the record for pluginID.
func (m *Manifest) Entry(pluginID string) (ManifestEntry, bool) {
	for _, e := range m.Plugins {
		if e.PluginID == pluginID {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// Put adds or replaces the record for e.PluginID, keeping entries sorted.
func (m *Manifest) Put(e ManifestEntry) {
	for i := range m.Plugins {
		if m.Plugins[i].PluginID == e.PluginID {
			m.Plugins[i] = e
			return
		}
	}
	m.Plugins = append(m.Plugins, e)
	sort.Slice(m.Plugins, func(i, j int) bool { return m.Plugins[i].PluginID < m.Plugins[j].PluginID })
}

// Save writes the manifest into the project.
func (m *Manifest) Save(projectDir string) error {
	if m.Plugins == nil {
		m.Plugins = []ManifestEntry{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plugin manifest: %w", err)
	}
	return platform.WriteFile(ManifestPath(projectDir), append(data, '\n'))
}

// recordInstall adds the plugin to the project's manifest.
func recordInstall(projectDir string, e ManifestEntry) error {
	m, err := ReadManifest(projectDir)
	if err != nil {
		return err
	}
	m.Put(e)
	return m.Save(projectDir)
}
