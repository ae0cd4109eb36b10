package update

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/logging"
)

// Input is one DAT file and the root it was found under.
type Input struct {
	Path string
	Root string
}

// Base returns the file name without extension.
func (in Input) Base() string {
	b := filepath.Base(in.Path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}

// RelDir returns the slash-separated directory of Path relative to Root,
// or "" when the file sits directly in Root.
func (in Input) RelDir() string {
	rel, err := filepath.Rel(in.Root, filepath.Dir(in.Path))
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// ExpandInputs flattens files and directories into a list of inputs.
// Directories are walked recursively in natural order. Missing or
// unreadable paths are logged and skipped.
func ExpandInputs(paths []string, reverse bool) []Input {
	var out []Input
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			logging.Warn("skipping input", "path", p, "error", err)
			continue
		}
		if !info.IsDir() {
			out = append(out, Input{Path: p, Root: filepath.Dir(p)})
			continue
		}

		var files []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logging.Warn("skipping input", "path", path, "error", err)
				if d != nil && d.IsDir() && path != p {
					return fs.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			logging.Warn("failed to walk input directory", "path", p, "error", err)
		}
		slices.SortFunc(files, datitem.NaturalCompare)
		for _, f := range files {
			out = append(out, Input{Path: f, Root: p})
		}
	}

	if reverse {
		slices.Reverse(out)
	}
	return out
}
