package plugins

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/platform"
)

// IsInstalled reports whether plugin p is materialized in the project for
// variant v: the plugin's configured path must hold a package.json that is a
// JSON object with a non-empty "name". Path existence alone is not enough.
func IsInstalled(projectDir string, p manifest.PluginDefinition, v manifest.Variant) bool {
	rel := p.Path(v)
	if rel == "" {
		return false
	}
	dir, err := platform.SafeJoin(projectDir, rel)
	if err != nil {
		return false
	}
	data, err := platform.ReadOptional(filepath.Join(dir, "package.json"))
	if err != nil || data == nil {
		return false
	}

	var pkg map[string]any
	if err := json.Unmarshal([]byte(*data), &pkg); err != nil {
		return false
	}
	name, ok := pkg["name"].(string)
	return ok && strings.TrimSpace(name) != ""
}
