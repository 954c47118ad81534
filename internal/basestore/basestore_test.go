package basestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRead(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.Save("waitlist", []File{
		{Target: "packages/plugins/waitlist/package.json", Content: "v1"},
		{Target: "apps/web/app/waitlist/page.tsx", Content: "page"},
	}))

	got, err := s.Read("waitlist", "packages/plugins/waitlist/package.json")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v1", *got)

	require.NoError(t, s.Save("waitlist", []File{{Target: "packages/plugins/waitlist/package.json", Content: "v2"}}))
	got, err = s.Read("waitlist", "packages/plugins/waitlist/package.json")
	require.NoError(t, err)
	assert.Equal(t, "v2", *got)

	got, err = s.Read("waitlist", "apps/web/app/waitlist/page.tsx")
	require.NoError(t, err)
	assert.Equal(t, "page", *got, "other targets keep their snapshot")
}

func TestRead_Absent(t *testing.T) {
	s := New(t.TempDir())
	got, err := s.Read("waitlist", "missing.ts")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExists(t *testing.T) {
	s := New(t.TempDir())
	assert.False(t, s.Exists("waitlist"))

	require.NoError(t, s.Save("waitlist", []File{{Target: "a.ts", Content: ""}}))
	assert.True(t, s.Exists("waitlist"))
	assert.False(t, s.Exists("roadmap"))
}

func TestLayout(t *testing.T) {
	project := t.TempDir()
	s := New(project)
	require.NoError(t, s.Save("waitlist", []File{{Target: "src/a.ts", Content: "x"}}))

	assert.FileExists(t, filepath.Join(project, "node_modules", ".cache", "kit", "bases", "waitlist", "src", "a.ts"))
}

func TestRejectsEscapingPaths(t *testing.T) {
	s := New(t.TempDir())
	assert.Error(t, s.Save("waitlist", []File{{Target: "../../escape.ts", Content: "x"}}))
	assert.Error(t, s.Save("../evil", []File{{Target: "a.ts", Content: "x"}}))

	_, err := s.Read("waitlist", "/etc/passwd")
	assert.Error(t, err)
}
