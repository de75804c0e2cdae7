package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Excluder matches paths against the configured exclusion patterns and,
// when enabled, the repository's .gitignore. A nil Excluder excludes nothing.
type Excluder struct {
	matchers []matcher
}

// matcher applies gitignore patterns to paths relative to base.
type matcher struct {
	base string
	m    gitignore.Matcher
}

// Excluder loads the exclusion rules for a tree rooted at root. Config
// patterns are relative to root; .gitignore patterns to the git root.
// An unreadable .gitignore is reported and ignored.
func (s *Scanner) Excluder(root string) *Excluder {
	abs, err := filepath.Abs(root)
	if err != nil {
		s.report(root, err)
		return nil
	}

	e := &Excluder{}
	var patterns []gitignore.Pattern
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	if len(patterns) > 0 {
		e.matchers = append(e.matchers, matcher{base: abs, m: gitignore.NewMatcher(patterns)})
	}

	if !s.config.Exclude.Gitignore {
		return e
	}
	gitRoot := findGitRoot(abs)
	if gitRoot == "" {
		return e
	}
	gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil {
		s.report(gitRoot, err)
		return e
	}
	if len(gitPatterns) > 0 {
		e.matchers = append(e.matchers, matcher{base: gitRoot, m: gitignore.NewMatcher(gitPatterns)})
	}
	return e
}

// Excluded reports whether path matches any exclusion rule.
func (e *Excluder) Excluded(path string, isDir bool) bool {
	if e == nil {
		return false
	}
	for _, m := range e.matchers {
		rel, err := filepath.Rel(m.base, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		if m.m.Match(strings.Split(rel, string(filepath.Separator)), isDir) {
			return true
		}
	}
	return false
}

// Len returns the number of loaded rule sets.
func (e *Excluder) Len() int {
	if e == nil {
		return 0
	}
	return len(e.matchers)
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
