package service

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/constants"
)

// FileCollector enumerates analyzable files under the requested paths,
// honoring policy include/exclude globs, .gitignore, and the built-in
// dependency/build directory exclusions
type FileCollector struct {
	includePatterns []string
	excludePatterns []string
}

// NewFileCollector creates a collector for the given glob patterns.
// Empty includes fall back to the default source patterns.
func NewFileCollector(includes, excludes []string) *FileCollector {
	if len(includes) == 0 {
		includes = constants.DefaultIncludePatterns
	}
	return &FileCollector{
		includePatterns: includes,
		excludePatterns: excludes,
	}
}

// Collect walks the given paths and returns a sorted, de-duplicated list
// of matching files. A path that is itself a file is accepted when it
// matches the include patterns.
func (c *FileCollector) Collect(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, domain.NewFileNotFoundError(root, err)
		}

		if !info.IsDir() {
			if c.matches(filepath.ToSlash(filepath.Base(root))) && !seen[root] {
				seen[root] = true
				files = append(files, root)
			}
			continue
		}

		ignorer := loadGitignore(root)
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if path != root && (isExcludedDir(d.Name()) || c.excluded(rel+"/")) {
					return filepath.SkipDir
				}
				return nil
			}
			if !c.matches(rel) || c.excluded(rel) {
				return nil
			}
			if ignorer != nil && ignorer.MatchesPath(rel) {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, domain.NewInvalidInputError("failed to walk "+root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (c *FileCollector) matches(rel string) bool {
	for _, pattern := range c.includePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		// allow bare-name patterns like *.py to match nested files
		if ok, err := doublestar.Match(pattern, filepath.Base(rel)); err == nil && ok {
			return true
		}
	}
	return false
}

func (c *FileCollector) excluded(rel string) bool {
	for _, pattern := range c.excludePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func isExcludedDir(name string) bool {
	for _, d := range constants.DefaultExcludeDirs {
		if name == d {
			return true
		}
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func loadGitignore(root string) *gitignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	ignorer, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return ignorer
}
