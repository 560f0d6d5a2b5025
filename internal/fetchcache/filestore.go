package fetchcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// maxLiteralKeyLen is the longest raw key stored under a sanitized
	// literal filename; longer keys fall back to a hashed filename.
	maxLiteralKeyLen = 64

	recordExt = ".json"
)

// record is the on-disk shape of one cache entry
type record struct {
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	WrittenAt  time.Time       `json:"writtenAt"`
	TTLSeconds int64           `json:"ttlSeconds"`
}

func (r *record) ttl() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

func (r *record) live(now time.Time) bool {
	return now.Before(r.WrittenAt.Add(r.ttl()))
}

// fileStore persists one record file per key under a namespace directory
type fileStore struct {
	dir string
}

func newFileStore(dir string) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

// filename maps a raw key to a filesystem-safe record name. Keys longer
// than maxLiteralKeyLen are stored under their SHA-256 hex instead of a
// sanitized literal. Known limitation: two distinct long keys hashing to
// the same digest would share a record; with SHA-256 this is accepted
// rather than worked around.
func (fs *fileStore) filename(key string) string {
	if len(key) > maxLiteralKeyLen {
		sum := sha256.Sum256([]byte(key))
		return hex.EncodeToString(sum[:]) + recordExt
	}
	return sanitizeKey(key) + recordExt
}

// sanitizeKey replaces path-hostile characters so a key can serve as a
// literal filename
func sanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// read loads the record for key, decoding its payload into out.
// Any failure is returned as-is; callers treat it as a miss.
func (fs *fileStore) read(key string, out any) (*record, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, fs.filename(key)))
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec.Key != "" && rec.Key != key {
		// Hashed-filename collision or a foreign record; read as absent
		return nil, fmt.Errorf("record key mismatch: %q", rec.Key)
	}
	if err := json.Unmarshal(rec.Payload, out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &rec, nil
}

// write atomically replaces the record for key
func (fs *fileStore) write(key string, value any, writtenAt time.Time, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	data, err := json.Marshal(record{
		Key:        key,
		Payload:    payload,
		WrittenAt:  writtenAt,
		TTLSeconds: int64(ttl / time.Second),
	})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	path := filepath.Join(fs.dir, fs.filename(key))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// sweep removes expired and undecodable records, returning the keys of
// the removed entries (filenames stand in for keys of corrupt records).
func (fs *fileStore) sweep(now time.Time) []string {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil
	}

	var removed []string
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		path := filepath.Join(fs.dir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			if os.Remove(path) == nil {
				removed = append(removed, name)
			}
			continue
		}
		if rec.live(now) {
			continue
		}
		if os.Remove(path) == nil {
			key := rec.Key
			if key == "" {
				key = name
			}
			removed = append(removed, key)
		}
	}
	return removed
}

// clear removes every record in the namespace
func (fs *fileStore) clear() error {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return err
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), recordExt) {
			continue
		}
		if err := os.Remove(filepath.Join(fs.dir, de.Name())); err != nil {
			return err
		}
	}
	return nil
}
