// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// SplitSearchPath splits a colon separated list of directories, dropping
// empty entries.
func SplitSearchPath(path string) []string {
	var dirs []string
	for _, d := range strings.Split(path, string(os.PathListSeparator)) {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Resolve finds name in the first directory of dirs that contains it.
// Absolute names and names starting with "./" are checked as they are.
func Resolve(dirs []string, name string) (string, bool) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "."+string(filepath.Separator)) {
		if !isFile(name) {
			return "", false
		}
		return name, true
	}
	for _, d := range dirs {
		full := filepath.Join(d, name)
		if isFile(full) {
			return full, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
