package testing

import (
	"os"
	"path/filepath"
	"testing"
)

// CreateTestModule writes a Go module into a temporary directory and
// returns its root. files maps slash-separated paths to contents; a go.mod
// declaring modulePath is added unless files provides one.
// The directory is removed automatically via t.Cleanup().
func CreateTestModule(t *testing.T, modulePath string, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	if _, ok := files["go.mod"]; !ok {
		writeFile(t, filepath.Join(dir, "go.mod"), "module "+modulePath+"\n\ngo 1.24\n")
	}
	for name, src := range files {
		writeFile(t, filepath.Join(dir, filepath.FromSlash(name)), src)
	}
	return dir
}

// ReadTestFile returns the contents of a file below dir.
func ReadTestFile(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return string(data)
}

func writeFile(t *testing.T, path, src string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
