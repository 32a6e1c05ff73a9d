// Package cache provides a file-backed JSON cache for expensive upstream
// lookups. Corrupt or missing entries read as absent, never as errors.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

type metadata struct {
	// Timestamp is unix milliseconds at write time.
	Timestamp int64 `json:"timestamp"`
	// ExpiresIn is milliseconds until expiry; zero means no expiry.
	ExpiresIn int64 `json:"expiresIn,omitempty"`
}

type entry struct {
	Data     json.RawMessage `json:"data"`
	Metadata metadata        `json:"metadata"`
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9-_]`)

// FileCache stores JSON-serializable values as files under a directory.
type FileCache struct {
	dir string
}

// New creates a cache rooted at dir. The directory is created lazily on
// first write.
func New(dir string) *FileCache {
	if dir == "" {
		dir = ".cache"
	}
	return &FileCache{dir: dir}
}

// Path returns the file path for a key, with unsafe characters replaced.
func (c *FileCache) Path(key string) string {
	return filepath.Join(c.dir, keySanitizer.ReplaceAllString(key, "_")+".json")
}

// Write stores v under key. A zero ttl means the entry never expires.
func (c *FileCache) Write(key string, v any, ttl time.Duration) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	e := entry{
		Data:     data,
		Metadata: metadata{Timestamp: time.Now().UnixMilli(), ExpiresIn: ttl.Milliseconds()},
	}
	out, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path(key), out, 0o644)
}

// Read loads the value stored under key into dst, reporting whether a live
// entry was found. Expired entries are deleted on read.
func (c *FileCache) Read(key string, dst any) (bool, error) {
	raw, err := os.ReadFile(c.Path(key))
	if err != nil {
		return false, nil
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false, nil
	}

	if expired(e.Metadata) {
		_ = c.Delete(key)
		return false, nil
	}

	if err := json.Unmarshal(e.Data, dst); err != nil {
		return false, nil
	}
	return true, nil
}

// Exists reports whether a live entry is stored under key.
func (c *FileCache) Exists(key string) bool {
	raw, err := os.ReadFile(c.Path(key))
	if err != nil {
		return false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false
	}
	return !expired(e.Metadata)
}

// Timestamp returns when the entry under key was written.
func (c *FileCache) Timestamp(key string) (time.Time, bool) {
	raw, err := os.ReadFile(c.Path(key))
	if err != nil {
		return time.Time{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(e.Metadata.Timestamp), true
}

// OlderThan reports whether the entry under key is older than d, or absent.
func (c *FileCache) OlderThan(key string, d time.Duration) bool {
	ts, ok := c.Timestamp(key)
	if !ok {
		return true
	}
	return time.Since(ts) > d
}

// Delete removes the entry under key. Absent entries are not an error.
func (c *FileCache) Delete(key string) error {
	err := os.Remove(c.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes all cache entries.
func (c *FileCache) Clear() error {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, f := range files {
		if filepath.Ext(f.Name()) == ".json" {
			if err := os.Remove(filepath.Join(c.dir, f.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetOrSet returns the cached value for key, or computes, stores and
// returns it via factory.
func GetOrSet[T any](c *FileCache, key string, ttl time.Duration, factory func() (T, error)) (T, error) {
	var cached T
	if ok, _ := c.Read(key, &cached); ok {
		return cached, nil
	}

	v, err := factory()
	if err != nil {
		return v, err
	}
	if err := c.Write(key, v, ttl); err != nil {
		return v, err
	}
	return v, nil
}

func expired(m metadata) bool {
	if m.ExpiresIn == 0 {
		return false
	}
	return time.Now().UnixMilli() > m.Timestamp+m.ExpiresIn
}
