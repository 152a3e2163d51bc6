package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes rendered documents under a single root directory.
type DiskStore struct {
	Root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{Root: root}
}

// Save writes data at the given document-root-relative path, creating parent
// directories as needed, and returns the stored relative path.
func (s *DiskStore) Save(relPath string, data []byte) (string, error) {
	clean := filepath.Clean(relPath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid document path %q", relPath)
	}
	full := filepath.Join(s.Root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return clean, nil
}

// Open returns the absolute path for a stored document, or an error if it
// does not exist.
func (s *DiskStore) Open(relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid document path %q", relPath)
	}
	full := filepath.Join(s.Root, clean)
	if _, err := os.Stat(full); err != nil {
		return "", err
	}
	return full, nil
}
