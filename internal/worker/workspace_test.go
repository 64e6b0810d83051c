package worker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspaceManager_AcquireRelease(t *testing.T) {
	base := t.TempDir()
	m := NewWorkspaceManager(base, newTestLogger())

	ws, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	info, err := os.Stat(ws.Root)
	if err != nil {
		t.Fatalf("workspace dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("workspace root is not a directory")
	}

	// Workspaces hold state; Release must take all of it down.
	if err := os.WriteFile(filepath.Join(ws.Root, "input.mp4"), []byte("x"), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if err := os.MkdirAll(ws.RenditionDir("low"), 0755); err != nil {
		t.Fatalf("mkdir rendition: %v", err)
	}

	m.Release(ws)

	if _, err := os.Stat(ws.Root); !os.IsNotExist(err) {
		t.Errorf("workspace still exists after Release: %v", err)
	}
}

func TestWorkspaceManager_AcquireUnique(t *testing.T) {
	m := NewWorkspaceManager(t.TempDir(), newTestLogger())

	a, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	b, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer m.Release(a)
	defer m.Release(b)

	if a.Root == b.Root {
		t.Errorf("two workspaces share a root: %s", a.Root)
	}
}

func TestWorkspace_Paths(t *testing.T) {
	ws := &Workspace{Root: "/tmp/encode/abc"}

	if got := ws.InputPath("uploads/video.mov"); got != "/tmp/encode/abc/input.mov" {
		t.Errorf("InputPath() = %q, want /tmp/encode/abc/input.mov", got)
	}
	if got := ws.InputPath("uploads/noext"); got != "/tmp/encode/abc/input" {
		t.Errorf("InputPath() = %q, want /tmp/encode/abc/input", got)
	}
	if got := ws.RenditionDir("mid"); got != "/tmp/encode/abc/mid" {
		t.Errorf("RenditionDir() = %q, want /tmp/encode/abc/mid", got)
	}
}
