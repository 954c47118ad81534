package registry

import (
	"fmt"

	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/platform"
)

// WriteFiles writes every file of an item to its target under root, creating
// parent directories as needed. Files are written in payload order; a failure
// leaves the earlier files in place. It returns the targets written.
func WriteFiles(root string, files []manifest.RegistryFile) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, f := range files {
		dst, err := platform.SafeJoin(root, f.Target)
		if err != nil {
			return written, fmt.Errorf("invalid target for %s: %w", f.Path, err)
		}
		if err := platform.WriteFile(dst, []byte(f.Content)); err != nil {
			return written, err
		}
		written = append(written, f.Target)
	}
	return written, nil
}
