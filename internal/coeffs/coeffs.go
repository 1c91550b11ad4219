// Package coeffs handles the coefficient files referenced by Conv filters:
// relative and absolute path conversion, filename tokens and existence
// checks.
package coeffs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agentic-research/pipeconv/api"
	billy "github.com/go-git/go-billy/v5"
	"github.com/spf13/cast"
)

// Filename tokens expanded by ReplaceTokens.
const (
	TokenSamplerate = "$samplerate$"
	TokenChannels   = "$channels$"
)

// Ref is a coefficient file referenced by a filter.
type Ref struct {
	Filter   string
	Filename string
}

// usesFile reports whether f reads its coefficients from a file.
func usesFile(f api.Filter) bool {
	if f.Type != api.FilterConv {
		return false
	}
	v, _ := f.Param("type")
	switch strings.ToLower(cast.ToString(v)) {
	case "raw", "wav":
		return true
	}
	return false
}

// Refs lists the coefficient files of cfg in filter order.
func Refs(cfg *api.Config) []Ref {
	var refs []Ref
	if cfg.Filters == nil {
		return refs
	}
	for p := cfg.Filters.Oldest(); p != nil; p = p.Next() {
		if !usesFile(p.Value) {
			continue
		}
		if name := filename(p.Value); name != "" {
			refs = append(refs, Ref{Filter: p.Key, Filename: name})
		}
	}
	return refs
}

func filename(f api.Filter) string {
	v, _ := f.Param("filename")
	return cast.ToString(v)
}

// convert returns a copy of cfg with fn applied to every coefficient filename.
func convert(cfg *api.Config, fn func(string) string) *api.Config {
	out := cfg.Clone()
	if out.Filters == nil {
		return out
	}
	for p := out.Filters.Oldest(); p != nil; p = p.Next() {
		if !usesFile(p.Value) {
			continue
		}
		if name := filename(p.Value); name != "" {
			p.Value.Parameters["filename"] = fn(name)
		}
	}
	return out
}

// MakeAbsolute returns a copy of cfg with relative coefficient paths
// resolved against dir.
func MakeAbsolute(cfg *api.Config, dir string) *api.Config {
	return convert(cfg, func(p string) string { return absolute(p, dir) })
}

// MakeRelative returns a copy of cfg with absolute coefficient paths made
// relative to dir.
func MakeRelative(cfg *api.Config, dir string) *api.Config {
	return convert(cfg, func(p string) string { return relative(p, dir) })
}

func absolute(p, base string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func relative(p, base string) string {
	if !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return p
	}
	return rel
}

// ReplaceTokens returns a copy of cfg with the $samplerate$ and $channels$
// tokens in coefficient filenames replaced. A token whose value is not
// positive is left in place.
func ReplaceTokens(cfg *api.Config, samplerate, channels int) *api.Config {
	var pairs []string
	if samplerate > 0 {
		pairs = append(pairs, TokenSamplerate, strconv.Itoa(samplerate))
	}
	if channels > 0 {
		pairs = append(pairs, TokenChannels, strconv.Itoa(channels))
	}
	r := strings.NewReplacer(pairs...)
	return convert(cfg, r.Replace)
}

func hasToken(name string) bool {
	return strings.Contains(name, TokenSamplerate) || strings.Contains(name, TokenChannels)
}

// IsPathInFolder reports whether path lies in folder or one of its
// subfolders. Both are cleaned first; symlinks are not resolved.
func IsPathInFolder(path, folder string) bool {
	rel, err := filepath.Rel(filepath.Clean(folder), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// RelativeCoeffDir is coeffDir relative to configDir with a trailing
// separator, the prefix new coefficient filenames get in a saved config.
func RelativeCoeffDir(configDir, coeffDir string) (string, error) {
	rel, err := filepath.Rel(configDir, coeffDir)
	if err != nil {
		return "", fmt.Errorf("coefficient dir: %w", err)
	}
	return rel + string(filepath.Separator), nil
}

// Problem is a coefficient file that cannot be used.
type Problem struct {
	Ref
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("filters/%s/parameters/filename : %s (%s)", p.Filter, p.Message, p.Filename)
}

// Check looks up every coefficient file of cfg on fsys. Filenames must
// already be absolute or relative to the root of fsys. Tokens are expanded
// from the samplerate and capture channel count of cfg; files whose tokens
// cannot be expanded are skipped. When coeffDir is set, files outside it
// are reported too.
func Check(fsys billy.Filesystem, cfg *api.Config, coeffDir string) ([]Problem, error) {
	samplerate, channels := deviceFormat(cfg)
	refs := Refs(cfg)
	expanded := Refs(ReplaceTokens(cfg, samplerate, channels))
	var problems []Problem
	for i, ref := range refs {
		name := expanded[i].Filename
		if hasToken(name) {
			continue
		}

		if coeffDir != "" && filepath.IsAbs(name) && !IsPathInFolder(name, coeffDir) {
			problems = append(problems, Problem{Ref: ref, Message: "outside the coefficient directory"})
		}
		if _, err := fsys.Stat(name); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				problems = append(problems, Problem{Ref: ref, Message: "file not found"})
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
	}
	return problems, nil
}

func deviceFormat(cfg *api.Config) (samplerate, channels int) {
	d := cfg.Devices
	if d == nil {
		return 0, 0
	}
	if d.Samplerate != nil {
		samplerate = *d.Samplerate
	}
	if d.Capture != nil {
		channels = cast.ToInt(d.Capture.Extra["channels"])
	}
	return samplerate, channels
}
