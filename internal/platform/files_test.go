package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOptionalMissing(t *testing.T) {
	got, err := ReadOptional(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWriteFileCreatesParents(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a", "b", "c.txt")

	require.NoError(t, WriteFile(path, []byte("hello")))

	got, err := ReadOptional(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", *got)
}

func TestRemoveIfExists(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.NoError(t, RemoveIfExists(path))
	assert.False(t, Exists(path))
	require.NoError(t, RemoveIfExists(path), "second remove is a no-op")
}

func TestSafeJoin(t *testing.T) {
	root := "/project"
	tests := []struct {
		rel     string
		want    string
		wantErr bool
	}{
		{"apps/web/page.tsx", "/project/apps/web/page.tsx", false},
		{"./a/../b.txt", "/project/b.txt", false},
		{"../outside", "", true},
		{"a/../../outside", "", true},
		{"/etc/passwd", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got, err := SafeJoin(root, tt.rel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}
