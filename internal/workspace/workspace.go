// Package workspace reads and writes configuration and coefficient files
// through a billy filesystem, so commands work the same on disk and in
// memory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Workspace is a filesystem plus the directories configs and coefficient
// files live in. Paths passed to its methods are absolute or relative to
// the filesystem root.
type Workspace struct {
	FS        billy.Filesystem
	ConfigDir string
	CoeffDir  string
}

// New returns a workspace over fsys.
func New(fsys billy.Filesystem, configDir, coeffDir string) *Workspace {
	return &Workspace{FS: fsys, ConfigDir: configDir, CoeffDir: coeffDir}
}

// OS returns a workspace over the host filesystem.
func OS(configDir, coeffDir string) *Workspace {
	return New(osfs.New("/"), configDir, coeffDir)
}

// ReadFile returns the contents of name.
func (w *Workspace) ReadFile(name string) ([]byte, error) {
	data, err := util.ReadFile(w.FS, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// WriteFile replaces name with data. The write is atomic: content is
// written to a temp file in the same directory, then renamed.
func (w *Workspace) WriteFile(name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := w.FS.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := util.TempFile(w.FS, dir, ".pipeconv-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = w.FS.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = w.FS.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}

	// Preserve original file permissions
	if info, err := w.FS.Stat(name); err == nil {
		if ch, ok := w.FS.(billy.Change); ok {
			_ = ch.Chmod(tmpName, info.Mode()) // best-effort permission sync
		}
	}

	if err := w.FS.Rename(tmpName, name); err != nil {
		_ = w.FS.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", name, err)
	}
	return nil
}

// Exists reports whether name exists.
func (w *Workspace) Exists(name string) (bool, error) {
	_, err := w.FS.Stat(name)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ConfigPath resolves a config name against ConfigDir. Names that would
// escape the directory are rejected.
func (w *Workspace) ConfigPath(name string) (string, error) {
	if w.ConfigDir == "" {
		return "", fmt.Errorf("no config directory configured")
	}
	p := filepath.Join(w.ConfigDir, name)
	rel, err := filepath.Rel(w.ConfigDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("config %q is outside %s", name, w.ConfigDir)
	}
	return p, nil
}

// Configs lists the YAML and JSON files in ConfigDir, sorted by name.
func (w *Workspace) Configs() ([]string, error) {
	return w.list(w.ConfigDir, ".yml", ".yaml", ".json")
}

// Coefficients lists the files in CoeffDir, sorted by name.
func (w *Workspace) Coefficients() ([]string, error) {
	return w.list(w.CoeffDir)
}

func (w *Workspace) list(dir string, exts ...string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := w.FS.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if len(exts) > 0 && !hasExt(e.Name(), exts) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
