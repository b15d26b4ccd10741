package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Well-known entries of a .worldstate/ directory.
const (
	SettingsFile    = "settings.toml"
	SQLiteFile      = "worldstate.db"
	LorebookDir     = "lorebooks"
	ConnectionsFile = "connections.toml"
)

// Layout is the set of default paths inside one .worldstate/ directory.
type Layout struct {
	Root        string
	Settings    string
	SQLite      string
	Lorebooks   string
	Connections string
}

// LayoutOf returns the default paths under root. Nothing is created.
func LayoutOf(root string) Layout {
	return Layout{
		Root:        root,
		Settings:    filepath.Join(root, SettingsFile),
		SQLite:      filepath.Join(root, SQLiteFile),
		Lorebooks:   filepath.Join(root, LorebookDir),
		Connections: filepath.Join(root, ConnectionsFile),
	}
}

// Init resolves the target directory like Target and makes sure the
// lorebook directory exists inside it.
func (m *Manager) Init(overrideDir string) (Layout, error) {
	root, err := m.Target(overrideDir)
	if err != nil {
		return Layout{}, err
	}

	l := LayoutOf(root)
	if err := os.MkdirAll(l.Lorebooks, 0o755); err != nil {
		return Layout{}, fmt.Errorf("creating lorebook directory %s: %w", l.Lorebooks, err)
	}
	return l, nil
}
