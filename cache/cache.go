// Package cache persists analysis results between runs keyed by source
// content, so unchanged packages are not re-analyzed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/SergeiSkv/FixProof/models"
)

// SchemaVersion invalidates entries written by incompatible builds.
const SchemaVersion = "1"

const openTimeout = time.Second

var (
	bucketDiagnostics = []byte("diagnostics")
	bucketMeta        = []byte("meta")
	keySchema         = []byte("schema")
)

// Cache stores analysis results in a bolt database with an in-memory
// front for entries already touched by this process.
type Cache struct {
	db *bolt.DB

	mu     sync.Mutex
	mem    map[string][]models.Diagnostic
	hits   int
	misses int
}

// Stats describes the state of one cache database.
type Stats struct {
	Path    string
	Entries int
	Hits    int
	Misses  int
}

// DefaultPath returns the per-user cache database location.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(dir, "fixproof", "cache.db"), nil
}

// Open opens the cache database at path, creating it if needed.
// Entries written under a different schema version are dropped.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &Cache{db: db, mem: make(map[string][]models.Diagnostic)}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create meta bucket: %w", err)
		}
		if string(meta.Get(keySchema)) != SchemaVersion {
			if tx.Bucket(bucketDiagnostics) != nil {
				if err := tx.DeleteBucket(bucketDiagnostics); err != nil {
					return fmt.Errorf("failed to drop stale entries: %w", err)
				}
			}
			if err := meta.Put(keySchema, []byte(SchemaVersion)); err != nil {
				return fmt.Errorf("failed to record schema version: %w", err)
			}
		}
		if _, err := tx.CreateBucketIfNotExists(bucketDiagnostics); err != nil {
			return fmt.Errorf("failed to create diagnostics bucket: %w", err)
		}
		return nil
	})
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached diagnostics for key. A decode failure counts
// as a miss, the entry will be overwritten by the next Put.
func (c *Cache) Get(key string) ([]models.Diagnostic, bool) {
	c.mu.Lock()
	if diags, ok := c.mem[key]; ok {
		c.hits++
		c.mu.Unlock()
		return diags, true
	}
	c.mu.Unlock()

	var raw []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketDiagnostics).Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if raw == nil {
		c.misses++
		return nil, false
	}
	var diags []models.Diagnostic
	if err := msgpack.Unmarshal(raw, &diags); err != nil {
		c.misses++
		return nil, false
	}
	c.mem[key] = diags
	c.hits++
	return diags, true
}

// Put stores diagnostics under key.
func (c *Cache) Put(key string, diags []models.Diagnostic) error {
	raw, err := msgpack.Marshal(diags)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDiagnostics).Put([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to store diagnostics: %w", err)
	}

	c.mu.Lock()
	c.mem[key] = diags
	c.mu.Unlock()
	return nil
}

// Clear drops every cached entry but keeps the schema record.
func (c *Cache) Clear() error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketDiagnostics); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketDiagnostics)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	c.mu.Lock()
	c.mem = make(map[string][]models.Diagnostic)
	c.hits = 0
	c.misses = 0
	c.mu.Unlock()
	return nil
}

// Stats reports entry and hit counts for this process.
func (c *Cache) Stats() Stats {
	var entries int
	_ = c.db.View(func(tx *bolt.Tx) error {
		entries = tx.Bucket(bucketDiagnostics).Stats().KeyN
		return nil
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Path:    c.db.Path(),
		Entries: entries,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// Key derives the cache key for one package analyzed under a given
// configuration fingerprint. Any change to a source file, the rule set
// or the tool version produces a new key.
func Key(fingerprint string, files map[string][]byte) string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(SchemaVersion))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	for _, name := range names {
		h.Write([]byte{0})
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(files[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}
