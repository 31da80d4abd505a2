package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, "[package]\nname = \"demo\"\n")

	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	found, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest: ok=%v err=%v", ok, err)
	}
	if found != path {
		t.Fatalf("found %q, want %q", found, path)
	}

	gotRoot, ok, err := FindRoot(nested)
	if err != nil || !ok || gotRoot != root {
		t.Fatalf("FindRoot = %q ok=%v err=%v, want %q", gotRoot, ok, err, root)
	}
}

func TestFindManifestMissing(t *testing.T) {
	_, ok, err := FindManifest(t.TempDir())
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if ok {
		t.Fatal("found a manifest in an empty tree")
	}
}

func TestLoadDecodesConfig(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "demo"

[build]
jobs = 4
max_diagnostics = 25
cache = true

[run]
main = "start"
program = "out/demo.qp"
`)

	m, ok, err := Load(dir)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if m.Config.Package.Name != "demo" {
		t.Fatalf("package name = %q", m.Config.Package.Name)
	}
	if m.Config.Build.Jobs != 4 || m.Config.Build.MaxDiagnostics != 25 || !m.Config.Build.Cache {
		t.Fatalf("build config = %+v", m.Config.Build)
	}
	if m.Config.Run.Main != "start" || m.Config.Run.Program != "out/demo.qp" {
		t.Fatalf("run config = %+v", m.Config.Run)
	}
	if m.Root != dir {
		t.Fatalf("root = %q, want %q", m.Root, dir)
	}
}

func TestLoadDefaultsMainEntry(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[package]\nname = \"demo\"\n")

	m, ok, err := Load(dir)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if m.Config.Run.Main != "main" {
		t.Fatalf("default entry = %q, want main", m.Config.Run.Main)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[package]\nname = \"demo\"\ncolour = \"red\"\n")

	_, ok, err := Load(dir)
	if !ok {
		t.Fatal("manifest not located")
	}
	if err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("err = %v, want an unknown-key error", err)
	}
}
