package storage

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// LocalPrefix marks identifiers minted by the local content store.
const LocalPrefix = "sha3-"

var localIDPattern = regexp.MustCompile(`^sha3-[0-9a-f]{64}$`)

// ContentStore persists documents on disk addressed by the SHA3-256 digest of their bytes.
type ContentStore struct {
	baseDir string
}

// NewContentStore ensures the base directory exists and returns a handle.
func NewContentStore(baseDir string) (*ContentStore, error) {
	if baseDir == "" {
		baseDir = "./documents"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create documents directory: %w", err)
	}
	return &ContentStore{baseDir: baseDir}, nil
}

// Put streams the reader to disk and returns its content identifier. Identical bytes yield the same id.
func (s *ContentStore) Put(r io.Reader) (string, int64, error) {
	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp document: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	hasher := sha3.New256()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write document stream: %w", err)
	}

	id := LocalPrefix + hex.EncodeToString(hasher.Sum(nil))
	target := s.resolve(id)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", 0, fmt.Errorf("prepare document directory: %w", err)
	}
	if _, err := os.Stat(target); err == nil {
		return id, written, nil
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return "", 0, fmt.Errorf("store document: %w", err)
	}
	return id, written, nil
}

// Open returns a read-only handle for the stored document.
func (s *ContentStore) Open(id string) (*os.File, error) {
	if !IsLocalID(id) {
		return nil, fmt.Errorf("invalid local content id %q", id)
	}
	file, err := os.Open(s.resolve(id))
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return file, nil
}

// Delete removes a stored document if present.
func (s *ContentStore) Delete(id string) error {
	if !IsLocalID(id) {
		return fmt.Errorf("invalid local content id %q", id)
	}
	if err := os.Remove(s.resolve(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// IsLocalID reports whether the identifier was produced by a ContentStore.
func IsLocalID(id string) bool {
	return localIDPattern.MatchString(id)
}

// two-level fan-out keeps directories small: sha3-abcd... -> ab/cd/sha3-abcd...
func (s *ContentStore) resolve(id string) string {
	digest := strings.TrimPrefix(id, LocalPrefix)
	return filepath.Join(s.baseDir, digest[:2], digest[2:4], id)
}
