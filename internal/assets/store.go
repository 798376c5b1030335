// Package assets stores raw text uploads addressed by their BLAKE3 digest
// and caches the canonical (normalized) text of each asset so encoding
// detection runs once per file.
package assets

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/mrlokans/txtshelf/internal/textenc"
)

// ErrNotFound is returned when no asset is stored under a digest.
var ErrNotFound = errors.New("asset not found")

// Store keeps raw bytes under <root>/raw/<xx>/<digest> and canonical text
// under <root>/text/<digest>.<encoding>.txt.
type Store struct {
	root string
}

// NewStore creates the store directories under root.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{"raw", "text"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("create asset dir: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Digest returns the hex BLAKE3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data and returns its digest. Storing the same bytes twice only
// refreshes the modification time, which Prune uses as a grace period.
func (s *Store) Put(data []byte) (string, error) {
	digest := Digest(data)
	path := s.rawPath(digest)
	if _, err := os.Stat(path); err == nil {
		now := time.Now()
		if err := os.Chtimes(path, now, now); err != nil {
			return "", fmt.Errorf("touch asset %s: %w", digest, err)
		}
		return digest, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}
	if err := writeAtomic(filepath.Dir(path), path, data); err != nil {
		return "", fmt.Errorf("store asset %s: %w", digest, err)
	}
	return digest, nil
}

// Get returns the raw bytes stored under digest.
func (s *Store) Get(digest string) ([]byte, error) {
	if !validDigest(digest) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, digest)
	}
	data, err := os.ReadFile(s.rawPath(digest))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, digest)
	}
	return data, err
}

// Canonical returns the normalized text of an asset, decoding it with the
// given encoding hint on the first call and serving the cached copy after.
func (s *Store) Canonical(digest, encoding string) (string, error) {
	cachePath := s.textPath(digest, encoding)
	if data, err := os.ReadFile(cachePath); err == nil {
		return string(data), nil
	}

	raw, err := s.Get(digest)
	if err != nil {
		return "", err
	}
	text := textenc.Normalize(raw, encoding).Text
	if err := writeAtomic(filepath.Join(s.root, "text"), cachePath, []byte(text)); err != nil {
		return "", fmt.Errorf("cache canonical text %s: %w", digest, err)
	}
	return text, nil
}

// Delete removes the raw asset and every cached canonical copy.
func (s *Store) Delete(digest string) error {
	if !validDigest(digest) {
		return nil
	}
	if err := os.Remove(s.rawPath(digest)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return s.dropText(func(d string) bool { return d == digest })
}

// Prune removes assets whose digest is not in keep and returns how many raw
// assets were deleted. Assets written after olderThan are left alone: an
// upload is stored before the file row that references it exists.
func (s *Store) Prune(keep map[string]bool, olderThan time.Time) (int, error) {
	removed := 0
	fresh := make(map[string]bool)
	err := filepath.WalkDir(filepath.Join(s.root, "raw"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if keep[d.Name()] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(olderThan) {
			fresh[d.Name()] = true
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, err
	}
	return removed, s.dropText(func(d string) bool { return !keep[d] && !fresh[d] })
}

func (s *Store) dropText(match func(digest string) bool) error {
	pattern := filepath.Join(s.root, "text", "*.txt")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, p := range paths {
		digest, _, _ := strings.Cut(filepath.Base(p), ".")
		if !match(digest) {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *Store) rawPath(digest string) string {
	return filepath.Join(s.root, "raw", digest[:2], digest)
}

func (s *Store) textPath(digest, encoding string) string {
	if encoding == "" {
		encoding = "auto"
	}
	enc := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return '_'
	}, strings.ToLower(encoding))
	return filepath.Join(s.root, "text", digest+"."+enc+".txt")
}

func validDigest(d string) bool {
	if len(d) != 64 {
		return false
	}
	_, err := hex.DecodeString(d)
	return err == nil
}

// writeAtomic writes data to a temp file in dir and renames it into place.
func writeAtomic(dir, path string, data []byte) error {
	tmpFile, err := os.CreateTemp(dir, ".asset_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
