package test

import (
	"os"
	"path/filepath"
	"testing"
)

// writePlist drops content into dir under name and returns the path.
func writePlist(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
