// Package backup archives whole files before they are deleted and can put
// them back. Each run owns one session directory holding the copies, laid
// out by path relative to the project base, and a session.yaml manifest.
package backup

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// SessionFile is the manifest written at the top of the backup directory.
const SessionFile = "session.yaml"

var (
	// ErrUnsafeDir is returned for backup directories that overlap the
	// project or hold files this tool did not write.
	ErrUnsafeDir = errors.New("unsafe backup directory")
	// ErrDigestMismatch is returned when a copy does not match its source.
	ErrDigestMismatch = errors.New("backup digest mismatch")
)

// Entry records one archived file.
type Entry struct {
	Original string `yaml:"original" json:"original" toon:"original"`
	Backup   string `yaml:"backup" json:"backup" toon:"backup"`
	Digest   string `yaml:"digest" json:"digest" toon:"digest"`
	Category string `yaml:"category,omitempty" json:"category,omitempty" toon:"category"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty" toon:"name"`
}

// Session is the manifest of one run.
type Session struct {
	ID      string    `yaml:"id"`
	Base    string    `yaml:"base"`
	Started time.Time `yaml:"started"`
	Entries []Entry   `yaml:"entries"`
}

// Store copies files into the backup directory.
// It is not safe for concurrent use.
type Store struct {
	dir     string
	base    string
	verify  bool
	session Session
}

// Option configures a Store.
type Option func(*Store)

// WithVerify toggles digest verification of every copy.
func WithVerify(verify bool) Option {
	return func(s *Store) {
		s.verify = verify
	}
}

// New creates a store rooted at dir for files under base. The directory is
// created on the first Save. dir may not contain base or lie inside it.
func New(dir, base string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrUnsafeDir)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if within(absBase, absDir) || within(absDir, absBase) {
		return nil, fmt.Errorf("%w: %s overlaps %s", ErrUnsafeDir, absDir, absBase)
	}

	s := &Store{dir: absDir, base: absBase, verify: true}
	for _, opt := range opts {
		opt(s)
	}
	s.session = newSession(absBase)
	return s, nil
}

func newSession(base string) Session {
	return Session{
		ID:      uuid.NewString(),
		Base:    base,
		Started: time.Now().UTC().Truncate(time.Second),
	}
}

// within reports whether path is root or below it.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Dir returns the backup directory.
func (s *Store) Dir() string { return s.dir }

// Session returns a copy of the current session manifest.
func (s *Store) Session() Session {
	out := s.session
	out.Entries = append([]Entry(nil), s.session.Entries...)
	return out
}

// Reset clears the previous session and starts a new one. The directory
// must be missing, empty, or hold a session manifest; anything else is
// refused with ErrUnsafeDir. Of a previous session only the listed copies,
// the manifest and the directories they leave empty are removed.
func (s *Store) Reset() error {
	if filepath.Dir(s.dir) == s.dir {
		return fmt.Errorf("%w: %s", ErrUnsafeDir, s.dir)
	}
	entries, err := os.ReadDir(s.dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read backup dir: %w", err)
	case len(entries) > 0:
		if err := s.clearSession(); err != nil {
			return err
		}
	}
	s.session = newSession(s.base)
	return nil
}

func (s *Store) clearSession() error {
	prev, err := Load(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %s is not empty and holds no readable %s", ErrUnsafeDir, s.dir, SessionFile)
	}

	dirs := make(map[string]bool)
	for _, e := range prev.Entries {
		path := filepath.Clean(e.Backup)
		if !filepath.IsAbs(path) || path == s.dir || !within(path, s.dir) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove backup %s: %w", path, err)
		}
		for dir := filepath.Dir(path); dir != s.dir && within(dir, s.dir); dir = filepath.Dir(dir) {
			dirs[dir] = true
		}
	}
	if err := os.Remove(filepath.Join(s.dir, SessionFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}

	// Deepest first; directories still holding other files stay.
	emptied := make([]string, 0, len(dirs))
	for dir := range dirs {
		emptied = append(emptied, dir)
	}
	sort.Slice(emptied, func(i, j int) bool { return len(emptied[i]) > len(emptied[j]) })
	for _, dir := range emptied {
		_ = os.Remove(dir)
	}
	return nil
}

// Target returns where path is archived: its path relative to the base, or
// for files outside the base, its absolute path below "external".
func (s *Store) Target(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if within(abs, s.base) && abs != s.base {
		rel, err := filepath.Rel(s.base, abs)
		if err != nil {
			return "", err
		}
		return filepath.Join(s.dir, rel), nil
	}
	trimmed := strings.TrimPrefix(abs, filepath.VolumeName(abs))
	return filepath.Join(s.dir, "external", trimmed), nil
}

// Save copies path into the backup directory and records it. When
// verification is on, the copy is re-read and compared by BLAKE3 digest.
// The original is never touched.
func (s *Store) Save(path, category, name string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", path, err)
	}

	dst, err := s.Target(path)
	if err != nil {
		return Entry{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Entry{}, fmt.Errorf("create backup dir: %w", err)
	}
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return Entry{}, fmt.Errorf("write backup %s: %w", dst, err)
	}

	digest := HashBytes(data)
	if s.verify {
		got, err := HashFile(dst)
		if err != nil {
			return Entry{}, fmt.Errorf("verify backup %s: %w", dst, err)
		}
		if got != digest {
			return Entry{}, fmt.Errorf("%w: %s", ErrDigestMismatch, dst)
		}
	}

	original, _ := filepath.Abs(path)
	entry := Entry{
		Original: original,
		Backup:   dst,
		Digest:   digest,
		Category: category,
		Name:     name,
	}
	s.session.Entries = append(s.session.Entries, entry)
	if err := s.writeSession(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *Store) writeSession() error {
	data, err := yaml.Marshal(&s.session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	path := filepath.Join(s.dir, SessionFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load reads the session manifest in dir.
func Load(dir string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(dir, SessionFile))
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var session Session
	if err := yaml.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// RestoreResult lists what Restore did.
type RestoreResult struct {
	Restored []Entry `json:"restored" toon:"restored"`
	// Skipped entries already exist at their original location.
	Skipped []Entry `json:"skipped" toon:"skipped"`
}

// Restore copies every archived file in dir's session back to its original
// location. Existing files are left alone unless overwrite is set. A copy
// whose digest no longer matches is not restored. Failures are joined and
// do not stop the remaining entries.
func Restore(dir string, overwrite bool) (*RestoreResult, error) {
	session, err := Load(dir)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	var errs []error
	for _, e := range session.Entries {
		if _, err := os.Stat(e.Original); err == nil && !overwrite {
			result.Skipped = append(result.Skipped, e)
			continue
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("stat %s: %w", e.Original, err))
			continue
		}

		if err := restoreEntry(e); err != nil {
			errs = append(errs, err)
			continue
		}
		result.Restored = append(result.Restored, e)
	}
	return result, errors.Join(errs...)
}

func restoreEntry(e Entry) error {
	data, err := os.ReadFile(e.Backup)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", e.Backup, err)
	}
	if e.Digest != "" && HashBytes(data) != e.Digest {
		return fmt.Errorf("%w: %s", ErrDigestMismatch, e.Backup)
	}
	mode := fs.FileMode(0644)
	if info, err := os.Stat(e.Backup); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(e.Original), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(e.Original), err)
	}
	if err := os.WriteFile(e.Original, data, mode); err != nil {
		return fmt.Errorf("restore %s: %w", e.Original, err)
	}
	return nil
}

// HashFile computes a BLAKE3 hash of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
