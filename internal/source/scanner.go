package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanPath discovers ledger import files. A file path is returned as-is;
// a directory is walked for *.jsonl files, sorted by name.
func ScanPath(root string) ([]DiscoveredFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []DiscoveredFile{{Path: root, Name: filepath.Base(root)}}, nil
	}

	var files []DiscoveredFile
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		files = append(files, DiscoveredFile{Path: path, Name: rel})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, err
}
