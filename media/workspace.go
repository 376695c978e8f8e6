package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kbukum/speakerid/component"
)

var _ component.Component = (*Workspace)(nil)

// Workspace is a scratch directory for normalized audio copies. The
// directory is created on first use and removed by Close.
type Workspace struct {
	parent string

	mu  sync.Mutex
	dir string
}

// NewWorkspace returns a workspace rooted under parent, or the system temp
// directory when parent is empty.
func NewWorkspace(parent string) *Workspace {
	return &Workspace{parent: parent}
}

// Dir returns the scratch directory, creating it if needed.
func (w *Workspace) Dir() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dir != "" {
		return w.dir, nil
	}
	if w.parent != "" {
		if err := os.MkdirAll(w.parent, 0o755); err != nil {
			return "", fmt.Errorf("create scratch parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(w.parent, "speakerid-*")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	w.dir = dir
	return dir, nil
}

// Path returns a path for name inside the scratch directory.
func (w *Workspace) Path(name string) (string, error) {
	dir, err := w.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(name)), nil
}

// Close removes the scratch directory and everything in it. The workspace
// can be reused afterwards.
func (w *Workspace) Close() error {
	w.mu.Lock()
	dir := w.dir
	w.dir = ""
	w.mu.Unlock()
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove scratch dir: %w", err)
	}
	return nil
}

func (w *Workspace) Name() string { return "workspace" }

func (w *Workspace) Start(_ context.Context) error {
	_, err := w.Dir()
	return err
}

func (w *Workspace) Stop(_ context.Context) error {
	return w.Close()
}

func (w *Workspace) Health(_ context.Context) component.Health {
	w.mu.Lock()
	dir := w.dir
	w.mu.Unlock()
	if dir == "" {
		return component.Health{Name: w.Name(), Status: component.StatusHealthy, Message: "idle"}
	}
	if _, err := os.Stat(dir); err != nil {
		return component.Health{Name: w.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	return component.Health{Name: w.Name(), Status: component.StatusHealthy}
}
