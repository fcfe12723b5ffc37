package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/invoxel/invoice-pipeline/constants"
)

// ScanDirectory walks root recursively and returns the absolute paths of
// all ingestible invoice files, sorted for a stable submission order.
func ScanDirectory(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if constants.IsAllowedExt(filepath.Ext(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", abs, err)
	}
	sort.Strings(files)
	return files, nil
}
