package worker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultWorkDir is the base directory for per-job workspaces.
const DefaultWorkDir = "/tmp/encode"

// Workspace is the isolated directory tree owned by one job execution. It
// holds the downloaded source file and one subdirectory per rendition label.
type Workspace struct {
	Root string
}

// InputPath returns the path of the downloaded source file, keeping the
// raw key's extension so the engine can sniff the container format.
func (w *Workspace) InputPath(rawKey string) string {
	return filepath.Join(w.Root, "input"+filepath.Ext(rawKey))
}

// RenditionDir returns the output directory for a rendition label.
func (w *Workspace) RenditionDir(label string) string {
	return filepath.Join(w.Root, label)
}

// WorkspaceManager allocates and tears down per-job workspaces.
type WorkspaceManager struct {
	baseDir string
	log     *slog.Logger
}

// NewWorkspaceManager creates a WorkspaceManager rooted at baseDir.
func NewWorkspaceManager(baseDir string, log *slog.Logger) *WorkspaceManager {
	if baseDir == "" {
		baseDir = DefaultWorkDir
	}
	return &WorkspaceManager{baseDir: baseDir, log: log}
}

// Acquire creates a fresh, uniquely named workspace directory.
func (m *WorkspaceManager) Acquire() (*Workspace, error) {
	root := filepath.Join(m.baseDir, uuid.NewString())
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{Root: root}, nil
}

// Release recursively deletes the workspace. Called on every exit path of
// the pipeline so temp directories never leak.
func (m *WorkspaceManager) Release(ws *Workspace) {
	if ws == nil {
		return
	}
	if err := os.RemoveAll(ws.Root); err != nil {
		m.log.Warn("Failed to remove workspace", "path", ws.Root, "error", err)
	}
}
