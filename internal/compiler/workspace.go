package compiler

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace holds the temporary output directories of one compiler run.
type Workspace struct {
	Root string
	VDir string
	BDir string
}

// NewWorkspace creates a fresh workspace under base, or under the system
// temp directory when base is empty. Callers must Close it.
func NewWorkspace(base string) (*Workspace, error) {
	root, err := os.MkdirTemp(base, "bsv-synth-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	w := &Workspace{
		Root: root,
		VDir: filepath.Join(root, "v"),
		BDir: filepath.Join(root, "b"),
	}
	for _, dir := range []string{w.VDir, w.BDir} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}
	return w, nil
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if w == nil || w.Root == "" {
		return nil
	}
	return os.RemoveAll(w.Root)
}
