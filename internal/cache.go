package internal

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	tt "github.com/gnoswap-labs/gpath/internal/types"
)

const (
	cacheFileName = "findings.gob"
	// cacheVersion changes whenever the stored layout does.
	cacheVersion = 2
)

// documentStamp identifies the content of a document file. Size and
// modification time are compared first; the digest settles the rest.
type documentStamp struct {
	Size    int64
	ModTime time.Time
	Digest  string
}

type cacheEntry struct {
	Stamp    documentStamp
	Ruleset  string
	Findings []tt.Finding
	StoredAt time.Time
}

type cacheFile struct {
	Version int
	Entries map[string]cacheEntry
}

// Cache persists the findings of each document between runs. Entries belong
// to one ruleset, a fingerprint of the rules that produced them, and are
// stale once the document content or the ruleset differs.
type Cache struct {
	Dir     string
	ruleset string
	maxAge  time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache opens the cache stored in dir, creating the directory if needed.
// Entries written under another ruleset are discarded.
func NewCache(dir, ruleset string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	c := &Cache{
		Dir:     dir,
		ruleset: ruleset,
		maxAge:  24 * time.Hour,
		entries: make(map[string]cacheEntry),
	}
	stored, err := c.read()
	if err != nil {
		return nil, err
	}
	for path, e := range stored {
		if e.Ruleset == ruleset {
			c.entries[path] = e
		}
	}
	return c, nil
}

func (c *Cache) path() string { return filepath.Join(c.Dir, cacheFileName) }

func (c *Cache) read() (map[string]cacheEntry, error) {
	f, err := os.Open(c.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	var stored cacheFile
	if err := gob.NewDecoder(f).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode cache file: %w", err)
	}
	if stored.Version != cacheVersion {
		return nil, nil
	}
	return stored.Entries, nil
}

// write replaces the cache file through a rename so that a concurrent
// reader never sees a partial file.
func (c *Cache) write() error {
	tmp, err := os.CreateTemp(c.Dir, cacheFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	err = gob.NewEncoder(tmp).Encode(cacheFile{Version: cacheVersion, Entries: c.entries})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return os.Rename(tmp.Name(), c.path())
}

// Set stores the findings of the document at path and persists the cache.
func (c *Cache) Set(path string, findings []tt.Finding) error {
	stamp, err := stampDocument(path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{
		Stamp:    stamp,
		Ruleset:  c.ruleset,
		Findings: findings,
		StoredAt: time.Now(),
	}
	return c.write()
}

// Get returns the stored findings of the document at path, if still valid.
func (c *Cache) Get(path string) ([]tt.Finding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	if c.maxAge > 0 && time.Since(e.StoredAt) > c.maxAge {
		delete(c.entries, path)
		return nil, false
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(c.entries, path)
		return nil, false
	}
	if info.Size() == e.Stamp.Size && info.ModTime().Equal(e.Stamp.ModTime) {
		return e.Findings, true
	}

	// touched: keep the entry when the content is the same
	stamp, err := stampDocument(path)
	if err != nil || stamp.Digest != e.Stamp.Digest {
		delete(c.entries, path)
		return nil, false
	}
	e.Stamp = stamp
	c.entries[path] = e
	return e.Findings, true
}

// SetMaxAge bounds how long an entry stays valid. Zero disables expiry.
func (c *Cache) SetMaxAge(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxAge = d
}

// Clear drops every entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	return c.write()
}

func stampDocument(path string) (documentStamp, error) {
	f, err := os.Open(path)
	if err != nil {
		return documentStamp{}, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return documentStamp{}, fmt.Errorf("failed to stat document: %w", err)
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return documentStamp{}, fmt.Errorf("failed to hash document: %w", err)
	}
	return documentStamp{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Digest:  hex.EncodeToString(h.Sum(nil)),
	}, nil
}
