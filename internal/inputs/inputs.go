// Package inputs expands glob patterns into the file list a map/reduce run
// fans out over.
package inputs

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// Files returns the regular files matched by patterns as sorted, absolute,
// de-duplicated paths. Patterns support ** for recursive matching. Symlinks
// and directories are skipped.
func Files(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	files := []string{}
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		for _, name := range matches {
			info, err := os.Lstat(name)
			if err != nil {
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			abs, err := filepath.Abs(name)
			if err != nil {
				return nil, err
			}
			if _, ok := seen[abs]; ok {
				continue
			}
			seen[abs] = struct{}{}
			files = append(files, abs)
		}
	}
	slices.Sort(files)
	return files, nil
}
