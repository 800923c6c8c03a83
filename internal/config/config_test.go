package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dnswlt/dirsearch/internal/store"
	"github.com/google/go-cmp/cmp"
)

func writeTempFile(t *testing.T, name, content string) *store.DiskStore {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return store.NewDiskStore(dir)
}

func TestLoad(t *testing.T) {
	st := writeTempFile(t, "dirsearch.yml", `
catalog:
  url: http://localhost:8080/addons
  frameworkVersion: "8"
  timeout: 5s
  cacheDir: /tmp/dirsearch
  cacheTTL: 15m
  cacheSize: 4
descriptor:
  path: app/pom.xml
  container: /project/dependencyManagement/dependencies
output:
  format: cyclonedx
  color: false
`)
	got, err := Load(st, "dirsearch.yml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	color := false
	want := &Bundle{
		Catalog: CatalogConfig{
			URL:              "http://localhost:8080/addons",
			FrameworkVersion: "8",
			Timeout:          Duration(5 * time.Second),
			CacheDir:         "/tmp/dirsearch",
			CacheTTL:         Duration(15 * time.Minute),
			CacheSize:        4,
		},
		Descriptor: DescriptorConfig{
			Path:      "app/pom.xml",
			Container: "/project/dependencyManagement/dependencies",
		},
		Output: OutputConfig{
			Format: "cyclonedx",
			Color:  &color,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Empty(t *testing.T) {
	st := writeTempFile(t, "dirsearch.yml", "")
	got, err := Load(st, "dirsearch.yml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(&Bundle{}, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "catalog:\n  urls: x\n", "field urls not found"},
		{"bad duration", "catalog:\n  timeout: soon\n", "invalid duration"},
		{"bad container", "descriptor:\n  container: dependencies\n", "descriptor.container"},
		{"bad format", "output:\n  format: html\n", "output.format"},
		{"negative cache", "catalog:\n  cacheSize: -1\n", "catalog.cacheSize"},
		{"negative ttl", "catalog:\n  cacheTTL: -5m\n", "catalog.cacheTTL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := writeTempFile(t, "dirsearch.yml", tc.content)
			_, err := Load(st, "dirsearch.yml")
			if err == nil {
				t.Fatalf("Load succeeded, want error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Load error = %v, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadOptional(t *testing.T) {
	st := store.NewDiskStore(t.TempDir())
	got, err := LoadOptional(st, DefaultPath)
	if err != nil {
		t.Fatalf("LoadOptional failed: %v", err)
	}
	if diff := cmp.Diff(&Bundle{}, got); diff != "" {
		t.Errorf("LoadOptional mismatch (-want +got):\n%s", diff)
	}

	if _, err := Load(st, DefaultPath); err == nil {
		t.Errorf("Load of missing file succeeded")
	}
}
