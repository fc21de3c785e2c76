package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NetlistExtensions are the file extensions picked up from directories.
var NetlistExtensions = []string{".v", ".sv"}

// ExpandNetlists turns files, directories and glob patterns into a sorted,
// de-duplicated list of netlist files. Relative arguments are taken against
// root. Directories contribute every netlist below them. A pattern that
// matches nothing and a file that doesn't exist are errors.
func ExpandNetlists(root string, args []string) ([]string, error) {
	fileSet := make(map[string]bool)

	for _, arg := range args {
		pattern := arg
		if !filepath.IsAbs(pattern) && root != "" {
			pattern = filepath.Join(root, pattern)
		}

		var matches []string
		if hasGlobMeta(pattern) {
			expanded, err := expandGlob(pattern)
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			matches = expanded
		} else {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, fmt.Errorf("netlist %s: %w", arg, err)
			}
			if info.IsDir() {
				expanded, err := expandDoubleStarGlob(filepath.Join(pattern, "**"))
				if err != nil {
					return nil, fmt.Errorf("expanding %s: %w", arg, err)
				}
				for _, match := range expanded {
					if isNetlist(match) {
						matches = append(matches, match)
					}
				}
			} else {
				matches = []string{pattern}
			}
		}

		if len(matches) == 0 {
			return nil, fmt.Errorf("no netlists match %s", arg)
		}
		for _, match := range matches {
			fileSet[filepath.Clean(match)] = true
		}
	}

	result := make([]string, 0, len(fileSet))
	for f := range fileSet {
		result = append(result, f)
	}
	sort.Strings(result)
	return result, nil
}

func isNetlist(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range NetlistExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// expandGlob expands a glob pattern, handling ** for recursive matching
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern)
	}
	return filepath.Glob(pattern)
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree
func expandDoubleStarGlob(pattern string) ([]string, error) {
	var results []string

	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return filepath.Glob(pattern)
	}

	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if info.IsDir() {
			return nil
		}

		if suffix == "" {
			results = append(results, path)
			return nil
		}

		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}
		if matchSuffix(relPath, suffix) {
			results = append(results, path)
		}
		return nil
	})

	return results, err
}

// matchSuffix checks if a path matches a suffix pattern (after **)
func matchSuffix(path, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, string(filepath.Separator))

	// No directory component: match against the file name
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}

	segments := strings.Count(pattern, string(filepath.Separator)) + 1
	parts := strings.Split(path, string(filepath.Separator))
	if len(parts) > segments {
		tail := filepath.Join(parts[len(parts)-segments:]...)
		matched, _ := filepath.Match(pattern, tail)
		return matched
	}

	return false
}
