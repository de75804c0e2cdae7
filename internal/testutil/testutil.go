// Package testutil builds Android project fixtures for tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// Manifest is a minimal AndroidManifest.xml.
const Manifest = `<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="com.example">
    <application android:label="@string/app_name" android:theme="@style/AppTheme" />
</manifest>
`

// WriteFile writes content to a file in the real filesystem.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// ReadFile reads content from a file.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error: %v", path, err)
	}
	return string(data)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateFileTree creates multiple files from a map of path -> content.
func CreateFileTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(name)), content)
	}
}

// ListFiles returns all files below root as sorted slash paths relative to it.
func ListFiles(t testing.TB, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir(%s) error: %v", root, err)
	}
	sort.Strings(files)
	return files
}

// Project is an Android project fixture: Base is a temporary directory and
// Root is Base/app, holding AndroidManifest.xml.
type Project struct {
	Base string
	Root string
}

// AndroidProject creates a project with the default manifest and the given
// files, keyed by slash paths relative to the base (the app module is "app/").
func AndroidProject(t testing.TB, files map[string]string) *Project {
	t.Helper()
	base := t.TempDir()
	p := &Project{Base: base, Root: filepath.Join(base, "app")}
	WriteFile(t, filepath.Join(p.Root, "AndroidManifest.xml"), Manifest)
	CreateFileTree(t, base, files)
	return p
}

// Path returns the absolute path of a slash path relative to the base.
func (p *Project) Path(rel string) string {
	return filepath.Join(p.Base, filepath.FromSlash(rel))
}
