package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDataDirEnvOverride(t *testing.T) {
	t.Setenv("PIGEON_DATA_DIR", "/srv/pigeon")
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/srv/pigeon" {
		t.Fatalf("got %s", got)
	}
}

func TestDefaultDataDirXDG(t *testing.T) {
	t.Setenv("PIGEON_DATA_DIR", "")
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/custom/data/pigeon" {
		t.Fatalf("got %s", got)
	}
}

func TestDefaultDataDirNoHome(t *testing.T) {
	t.Setenv("PIGEON_DATA_DIR", "")
	t.Setenv("HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	if got := DefaultDataDir(); got != "./data" {
		t.Fatalf("expected ./data fallback, got %s", got)
	}
}

func TestDefaultDataDirShape(t *testing.T) {
	t.Setenv("PIGEON_DATA_DIR", "")
	t.Setenv("XDG_DATA_HOME", "")
	got := DefaultDataDir()
	if got != DefaultDataDir() {
		t.Fatalf("not stable")
	}
	if got == "./data" {
		return
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("want absolute path, got %s", got)
	}
	base := strings.ToLower(filepath.Base(got))
	if base != "pigeon" && base != ".pigeon" {
		t.Fatalf("want a pigeon directory, got %s", got)
	}
}

func TestDataDirCandidatesSkipVarLibForUsers(t *testing.T) {
	c := dataDirCandidates("/home/u")
	if c[0].parent != "/var/lib" {
		t.Fatalf("unexpected first candidate %+v", c[0])
	}
	if c[0].ok != (os.Geteuid() == 0) {
		t.Fatalf("/var/lib allowed for euid %d", os.Geteuid())
	}
	for _, cand := range c[1:] {
		if !strings.HasPrefix(cand.parent, "/home/u") {
			t.Fatalf("candidate outside home: %+v", cand)
		}
	}
}

func TestIsDir(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".", true},
		{"/non/existent/path/that/does/not/exist", false},
		{os.Args[0], false},
	}
	for _, tt := range tests {
		if got := isDir(tt.path); got != tt.want {
			t.Errorf("isDir(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
