// Package state persists per-session run state so a paused or
// interrupted mission can resume from its last step boundary.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/typhonlabs/missioncore/pkg/fileutil"
)

// Manager loads and saves opaque session state. Implementations must
// make SaveState atomic: a crash mid-save leaves the previous snapshot
// intact, never a torn file.
type Manager interface {
	// LoadState returns the saved state for sessionID, or nil when the
	// session has no saved state yet.
	LoadState(sessionID string) (map[string]any, error)
	SaveState(sessionID string, state map[string]any) error
	// DeleteState removes the saved state for sessionID, if any.
	DeleteState(sessionID string) error
}

// FileManager keeps one JSON file per session under a base directory.
type FileManager struct {
	mu  sync.Mutex
	dir string
}

func NewFileManager(dir string) (*FileManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileManager{dir: dir}, nil
}

// pathFor maps a session id to a file path, replacing separators so an
// id can never point outside the state directory.
func (m *FileManager) pathFor(sessionID string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(sessionID)
	return filepath.Join(m.dir, safe+".json")
}

func (m *FileManager) LoadState(sessionID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.pathFor(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", sessionID, err)
	}

	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state for %s: %w", sessionID, err)
	}
	return state, nil
}

func (m *FileManager) SaveState(sessionID string, state map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", sessionID, err)
	}
	if err := fileutil.WriteFileAtomic(m.pathFor(sessionID), data, 0o600); err != nil {
		return fmt.Errorf("save state for %s: %w", sessionID, err)
	}
	return nil
}

func (m *FileManager) DeleteState(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := os.Remove(m.pathFor(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete state for %s: %w", sessionID, err)
	}
	return nil
}
