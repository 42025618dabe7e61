// Package examples attaches the library's real example sources to the
// scratch workspace and enumerates them for checking.
package examples

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Link makes libraryExamples visible at workspacePath via a symbolic link,
// without copying content. The provisioner must already have removed the
// template's own examples: if anything still exists at workspacePath the
// link is refused rather than silently merged.
func Link(workspacePath, libraryExamples string) error {
	info, err := os.Stat(libraryExamples)
	if err != nil {
		return fmt.Errorf("library examples: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("library examples: %s is not a directory", libraryExamples)
	}

	if _, err := os.Lstat(workspacePath); err == nil {
		return fmt.Errorf("refusing to link examples: %s already exists", workspacePath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking link path: %w", err)
	}

	if err := os.Symlink(libraryExamples, workspacePath); err != nil {
		return fmt.Errorf("linking examples: %w", err)
	}
	return nil
}

// List enumerates the example names under dir: .rs files directly below it
// (no recursion), extensions stripped, sorted lexicographically so runs are
// reproducible.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing examples: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".rs" {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".rs"))
	}
	sort.Strings(names)
	return names, nil
}
