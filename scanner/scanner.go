package scanner

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DocumentExtensions are the extensions of document files gpath can load.
var DocumentExtensions = []string{".yaml", ".yml", ".json"}

type FileInfo struct {
	Path string
	Size int64
}

// Scanner finds files by extension below a root. Hidden directories are
// skipped; so is the root's gpath cache.
type Scanner struct {
	rootDir    string
	extensions []string
	skip       map[string]bool
}

func New(rootDir string, extensions ...string) *Scanner {
	return &Scanner{
		rootDir:    rootDir,
		extensions: extensions,
		skip:       make(map[string]bool),
	}
}

// Skip excludes a file or directory, given by path, from the scan.
func (s *Scanner) Skip(paths ...string) *Scanner {
	for _, p := range paths {
		s.skip[filepath.Clean(p)] = true
	}
	return s
}

// Scan returns the matching files sorted by path. A root that is itself a
// file is returned when its extension matches.
func (s *Scanner) Scan() ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if s.skip[filepath.Clean(path)] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != s.rootDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.isTargetFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, FileInfo{Path: path, Size: info.Size()})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

// Paths returns just the paths of the matching files.
func (s *Scanner) Paths() ([]string, error) {
	files, err := s.Scan()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths, nil
}

func (s *Scanner) isTargetFile(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, targetExt := range s.extensions {
		if ext == targetExt {
			return true
		}
	}
	return false
}
