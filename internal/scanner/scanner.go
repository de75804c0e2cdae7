// Package scanner finds the markup and code files a usage scan reads.
// Every such file outside the skipped directories is returned: exclusion
// patterns and .gitignore only shield declarations from the indexer (see
// Excluder) and never hide references.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/panbanda/resprune/pkg/config"
	"github.com/panbanda/resprune/pkg/resource"
)

// ErrorFunc is called for entries the walk could not read.
type ErrorFunc func(path string, err error)

// Scanner finds source files in a directory.
type Scanner struct {
	config   *config.Config
	detector *resource.Detector
	onError  ErrorFunc
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithErrorFunc sets the callback for unreadable entries.
func WithErrorFunc(fn ErrorFunc) Option {
	return func(s *Scanner) {
		s.onError = fn
	}
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config, opts ...Option) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Scanner{
		config:   cfg,
		detector: resource.NewDetector(cfg.Scan.MarkupExtensions, cfg.Scan.CodeExtensions),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detector returns the dialect detector built from the scan config.
func (s *Scanner) Detector() *resource.Detector {
	return s.detector
}

func (s *Scanner) report(path string, err error) {
	if s.onError != nil {
		s.onError(path, err)
	}
}

// ScanDir recursively scans a directory for markup and code files.
// Skipped directories (the build output among them) are never entered,
// and symlinks resolving outside the root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 1024)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.report(path, err)
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				s.report(path, err)
				return nil
			}
			if !isWithinRoot(resolved, absRoot) {
				return nil
			}
			info, err := os.Stat(resolved)
			if err != nil || info.IsDir() {
				// WalkDir does not follow directory links.
				return nil
			}
		}

		if d.IsDir() {
			if path != absRoot && s.config.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.detector.Detect(path) != resource.DialectUnknown {
			files = append(files, path)
		}
		return nil
	})

	return files, walkErr
}

// ScanRoots scans every root and returns the union of their files, sorted
// and without duplicates. Roots that do not exist are reported and skipped.
func (s *Scanner) ScanRoots(roots ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, root := range roots {
		files, err := s.ScanDir(root)
		if err != nil {
			s.report(root, err)
			continue
		}
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	if !strings.HasPrefix(absPath, root+string(filepath.Separator)) && absPath != root {
		return false
	}

	return true
}

// ScanFile reports whether a single file would be included in a scan of
// its directory.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if s.config.SkipDir(filepath.Base(dir)) {
			return false, nil
		}
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	return s.detector.Detect(path) != resource.DialectUnknown, nil
}

// GroupByDialect groups files by their detected dialect.
func (s *Scanner) GroupByDialect(files []string) map[resource.Dialect][]string {
	groups := make(map[resource.Dialect][]string)
	for _, f := range files {
		d := s.detector.Detect(f)
		if d != resource.DialectUnknown {
			groups[d] = append(groups[d], f)
		}
	}
	return groups
}
