package conf

import (
	"fmt"
	"maps"
	"os"
	"strconv"
	"sync"

	"github.com/kjk/backbone/atomicfile"
	"github.com/kjk/backbone/u"
)

// Store is a thread-safe in-memory key/value configuration backed by a
// file in the format described in parse.go.
//
// Memory and disk are synchronized only explicitly: Set* calls mutate
// memory, ReadFromDisk replaces memory from the file, WriteToDisk
// replaces the file from memory. The in-memory map and the backing
// file are guarded by independent locks, so reads of memory are never
// blocked by an in-flight disk write and vice versa. A reader always
// observes the result of a complete load or mutation, never a partial
// one.
type Store struct {
	mu     sync.RWMutex // guards m
	fileMu sync.RWMutex // guards the backing file
	path   string
	m      map[string]string
}

// Open returns an empty Store backed by the file at path. No I/O is
// performed, call ReadFromDisk to load the file.
func Open(path string) *Store {
	return &Store{
		path: path,
		m:    map[string]string{},
	}
}

func (s *Store) Path() string {
	return s.path
}

// Exists returns true if key is set
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[key]
	return ok
}

// Config returns a snapshot copy of all entries
func (s *Store) Config() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.m)
}

// GetString returns the value for key, "" if not set
func (s *Store) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key]
}

// GetBool returns true iff the value for key case-insensitively equals
// "true" or "yes". A missing key is false.
func (s *Store) GetBool(key string) bool {
	return u.EqualFoldAny(s.GetString(key), "true", "yes")
}

// GetFloat returns the value for key as a float64. A missing key or a
// value that doesn't parse as a number is 0.
func (s *Store) GetFloat(key string) float64 {
	f, err := strconv.ParseFloat(s.GetString(key), 64)
	if err != nil {
		return 0
	}
	return f
}

// GetList splits the value for key on ',', dropping empty tokens.
// A missing key is an empty list.
func (s *Store) GetList(key string) []string {
	return u.SplitNonEmpty(s.GetString(key), ",")
}

// SetConfig replaces all entries with a copy of m. Memory only.
func (s *Store) SetConfig(m map[string]string) {
	c := maps.Clone(m)
	if c == nil {
		c = map[string]string{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = c
}

// SetString sets key to v. Memory only, use WriteToDisk to persist.
func (s *Store) SetString(key string, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = v
}

func (s *Store) SetBool(key string, v bool) {
	s.SetString(key, strconv.FormatBool(v))
}

func (s *Store) SetFloat(key string, v float64) {
	s.SetString(key, strconv.FormatFloat(v, 'g', -1, 64))
}

func (s *Store) SetList(key string, v []string) {
	s.SetString(key, u.JoinTrailing(v, ","))
}

// ReadFromDisk parses the backing file and replaces the in-memory
// entries. The file is parsed fully into a fresh map before the swap,
// so on any error (unreadable file, *ParseError) the previous in-memory
// state is untouched.
func (s *Store) ReadFromDisk() error {
	s.fileMu.RLock()
	d, err := os.ReadFile(s.path)
	s.fileMu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to open config file at %s: %w", s.path, err)
	}

	m, err := parse(d, s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = m
	return nil
}

// WriteToDisk serializes the in-memory entries to a temporary file next
// to the backing file and renames it over the backing file, so the file
// is never observed partially written, even across a crash mid-write.
func (s *Store) WriteToDisk() error {
	s.mu.RLock()
	d := serialize(s.m)
	s.mu.RUnlock()

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	f, err := atomicfile.New(s.path)
	if err != nil {
		return fmt.Errorf("failed to open config file at %s: %w", s.path, err)
	}
	defer f.RemoveIfNotClosed()

	if _, err = f.Write(d); err != nil {
		return err
	}
	return f.Close()
}
