package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testdataDir = "testdata"

func testPath(name string) string {
	return filepath.Join(testdataDir, name)
}

func TestParseCatalogFile(t *testing.T) {
	c, err := ParseCatalogFile(testPath("valid-catalog.yaml"))
	if err != nil {
		t.Fatalf("ParseCatalogFile error: %v", err)
	}
	if len(c.Plugins) != 2 {
		t.Fatalf("len(Plugins) = %d, want 2", len(c.Plugins))
	}

	waitlist := c.Plugins[0]
	if waitlist.ID != "waitlist" || waitlist.Name != "Waitlist" {
		t.Errorf("first plugin = %s/%s, want waitlist/Waitlist", waitlist.ID, waitlist.Name)
	}
	if waitlist.PostInstallMessage == "" {
		t.Error("PostInstallMessage is empty")
	}
	if got := waitlist.Path(VariantNextSupabase); got != "packages/plugins/waitlist" {
		t.Errorf("Path(next-supabase) = %q", got)
	}

	env := waitlist.EnvVars(VariantNextSupabase)
	if len(env) != 1 {
		t.Fatalf("EnvVars(next-supabase) len = %d, want 1", len(env))
	}
	if env[0].Key != "WAITLIST_NOTIFY_EMAIL" || env[0].DefaultValue != "team@example.com" {
		t.Errorf("EnvVars[0] = %+v", env[0])
	}
	if got := waitlist.EnvVars(VariantNextPrisma); got != nil {
		t.Errorf("EnvVars(next-prisma) = %v, want nil", got)
	}
}

func TestParseCatalog_JSON(t *testing.T) {
	data := []byte(`{"plugins":[{"id":"kanban","name":"Kanban","description":"Boards","variants":{"next-prisma":{"envVars":[]}}}]}`)
	c, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("ParseCatalog error: %v", err)
	}
	if len(c.Plugins) != 1 || !c.Plugins[0].Supports(VariantNextPrisma) {
		t.Errorf("unexpected catalog: %+v", c)
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"invalid-missing-name.yaml", "invalid catalog"},
		{"invalid-unknown-variant.yaml", "invalid catalog"},
		{"invalid-bad-id.yaml", "/plugins/0/id"},
		{"invalid-not-yaml.yaml", "parsing catalog"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := ParseCatalogFile(testPath(tt.file))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParseCatalogFile_NotFound(t *testing.T) {
	_, err := ParseCatalogFile(testPath("nonexistent.yaml"))
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestSupportedVariants_Sorted(t *testing.T) {
	c, err := ParseCatalogFile(testPath("valid-catalog.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	got := c.Plugins[0].SupportedVariants()
	want := []Variant{VariantNextDrizzle, VariantNextSupabase}
	if len(got) != len(want) {
		t.Fatalf("SupportedVariants = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SupportedVariants[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseVariant(t *testing.T) {
	for _, v := range Variants {
		got, err := ParseVariant(string(v))
		if err != nil || got != v {
			t.Errorf("ParseVariant(%s) = %s, %v", v, got, err)
		}
	}
	if _, err := ParseVariant("vue-firebase"); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestParseRegistryItem(t *testing.T) {
	data, err := os.ReadFile(testPath("valid-item.json"))
	if err != nil {
		t.Fatal(err)
	}

	item, err := ParseRegistryItem(data)
	if err != nil {
		t.Fatalf("ParseRegistryItem error: %v", err)
	}
	if item.Name != "waitlist" || item.Version != "1.2.0" {
		t.Errorf("item = %s@%s", item.Name, item.Version)
	}
	if len(item.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(item.Files))
	}
	if item.Files[1].Target != "packages/plugins/waitlist/src/index.ts" {
		t.Errorf("Files[1].Target = %q", item.Files[1].Target)
	}

	byTarget := item.ContentByTarget()
	if byTarget["packages/plugins/waitlist/src/index.ts"] != "export * from './server';\n" {
		t.Errorf("ContentByTarget mismatch: %v", byTarget)
	}

	specs := item.DependencySpecs()
	want := []string{"@tanstack/react-query@^5.0.0", "zod@^3.23.0"}
	if strings.Join(specs, ",") != strings.Join(want, ",") {
		t.Errorf("DependencySpecs = %v, want %v", specs, want)
	}
}

func TestParseRegistryItem_NoFiles(t *testing.T) {
	for _, data := range []string{`{"name":"waitlist"}`, `{"name":"waitlist","files":null}`} {
		item, err := ParseRegistryItem([]byte(data))
		if err != nil {
			t.Fatalf("ParseRegistryItem(%s) error: %v", data, err)
		}
		if len(item.Files) != 0 {
			t.Errorf("Files = %v, want none", item.Files)
		}
	}
}

func TestParseRegistryItem_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing name", `{"files":[]}`},
		{"file without target", `{"name":"waitlist","files":[{"content":"x"}]}`},
		{"non-string dependency", `{"name":"waitlist","files":[],"dependencies":{"zod":3}}`},
		{"not json", `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRegistryItem([]byte(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
