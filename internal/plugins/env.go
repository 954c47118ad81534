package plugins

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/platform"
)

// EnvFiles are the environment files that receive plugin declarations.
var EnvFiles = []string{".env.example", ".env.local"}

func envHeader(pluginName string) string {
	return fmt.Sprintf("# %s Plugin", pluginName)
}

// envBlock renders the section appended for a plugin. existing is the current
// file content, used to decide whether a separating newline is needed.
func envBlock(existing, pluginName string, vars []manifest.EnvVar) string {
	var lines []string
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		lines = append(lines, "")
	}
	lines = append(lines, "", envHeader(pluginName))
	for _, v := range vars {
		lines = append(lines, "# "+v.Description, v.Key+"="+v.DefaultValue)
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// AppendEnvVars appends the plugin's variables to each env file in the
// project. A file already carrying the plugin's header is left alone, so the
// append is idempotent. Missing files are created. It returns the files that
// were changed.
func AppendEnvVars(projectDir, pluginName string, vars []manifest.EnvVar) ([]string, error) {
	if len(vars) == 0 {
		return nil, nil
	}

	var changed []string
	for _, name := range EnvFiles {
		path := filepath.Join(projectDir, name)
		current, err := platform.ReadOptional(path)
		if err != nil {
			return changed, err
		}

		existing := ""
		if current != nil {
			existing = *current
		}
		if strings.Contains(existing, envHeader(pluginName)) {
			continue
		}

		content := existing + envBlock(existing, pluginName, vars)
		if err := platform.WriteFile(path, []byte(content)); err != nil {
			return changed, err
		}
		changed = append(changed, name)
	}
	return changed, nil
}
