package ingestion

import (
	"path/filepath"

	"github.com/karrick/godirwalk"

	"github.com/codequery/codequery/internal/chunking"
)

// ignoredDirs are pruned at every depth: version-control metadata, dependency
// caches, and build output.
var ignoredDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"__pycache__":  {},
	"venv":         {},
	".venv":        {},
	"dist":         {},
	"build":        {},
	".next":        {},
	".tox":         {},
	"env":          {},
	".eggs":        {},
}

// DiscoverFiles walks root and returns the paths of all source files with a
// supported extension, in lexical order. Unreadable entries are skipped.
func DiscoverFiles(root string) ([]string, error) {
	var files []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if _, ignored := ignoredDirs[de.Name()]; ignored && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if chunking.SupportedExtension(path) {
				files = append(files, path)
			}
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
		Unsorted: false,
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
