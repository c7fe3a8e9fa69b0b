// Package assetstore persists preprocessed collision collections. Bundles
// are keyed by robot name, representation scheme, and variant: a mutable
// current copy and an immutable baseline captured right after preprocessing.
package assetstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound reports that no asset exists under a key.
	ErrNotFound = errors.New("asset not found")

	// ErrAssetUnavailable is wrapped by save/load failures other than a
	// simple miss.
	ErrAssetUnavailable = errors.New("asset unavailable")
)

// Variant distinguishes the mutable working copy from the preprocessing-time
// baseline.
type Variant string

const (
	// VariantCurrent is the working copy, updated by calibration.
	VariantCurrent Variant = "current"
	// VariantBaseline is captured once after preprocessing and never
	// mutated; resets restore from it.
	VariantBaseline Variant = "baseline"
)

// Key addresses one serialized bundle.
type Key struct {
	Robot   string
	Scheme  string
	Variant Variant
}

// Store is the persistence collaborator for preprocessed collections.
type Store interface {
	Save(key Key, data []byte) error
	Load(key Key) ([]byte, error)
}

// FileStore keeps one JSON file per key under an explicitly provided root
// directory; there is no ambient working-directory state.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.Wrap(ErrAssetUnavailable, "file store needs a root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(ErrAssetUnavailable, "creating root %s: %v", root, err)
	}
	return &FileStore{root: root}, nil
}

func (fs *FileStore) path(key Key) string {
	return filepath.Join(fs.root, key.Robot, key.Scheme+"_"+string(key.Variant)+".json")
}

// Save writes the bundle, creating the robot's directory as needed.
func (fs *FileStore) Save(key Key, data []byte) error {
	p := fs.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrapf(ErrAssetUnavailable, "creating %s: %v", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.Wrapf(ErrAssetUnavailable, "writing %s: %v", p, err)
	}
	return nil
}

// Load reads the bundle, reporting ErrNotFound on a miss.
func (fs *FileStore) Load(key Key) ([]byte, error) {
	data, err := os.ReadFile(fs.path(key))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "%s/%s/%s", key.Robot, key.Scheme, key.Variant)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrAssetUnavailable, "reading %s: %v", fs.path(key), err)
	}
	return data, nil
}

// MemStore is an in-memory Store for tests and ephemeral use.
type MemStore struct {
	mu   sync.RWMutex
	data map[Key][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[Key][]byte)}
}

// Save stores a copy of the bundle.
func (ms *MemStore) Save(key Key, data []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.data[key] = append([]byte(nil), data...)
	return nil
}

// Load returns a copy of the bundle, reporting ErrNotFound on a miss.
func (ms *MemStore) Load(key Key) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	data, ok := ms.data[key]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s/%s/%s", key.Robot, key.Scheme, key.Variant)
	}
	return append([]byte(nil), data...), nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemStore)(nil)
)
