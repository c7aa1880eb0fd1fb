package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const sidecarSuffix = ".meta.json"

type sidecar struct {
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	Metadata    map[string]string `json:"metadata"`
	WrittenAt   time.Time         `json:"written_at"`
}

// FilesystemBackend stores objects as files under a root directory with a JSON sidecar per object.
type FilesystemBackend struct {
	root string
}

// NewFilesystemBackend returns a backend rooted at root.
func NewFilesystemBackend(root string) (*FilesystemBackend, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("filesystem object store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve object store root: %w", err)
	}
	return &FilesystemBackend{root: abs}, nil
}

func (b *FilesystemBackend) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(b.root, clean), nil
}

// EnsureBucket creates the root directory.
func (b *FilesystemBackend) EnsureBucket(context.Context) error {
	return os.MkdirAll(b.root, 0o755)
}

// Put writes the object and its sidecar through temp files and renames.
func (b *FilesystemBackend) Put(_ context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	meta, err := json.Marshal(sidecar{
		ContentType: contentType,
		Size:        int64(len(data)),
		Metadata:    metadata,
		WrittenAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}

	if err := writeAtomic(p+sidecarSuffix, meta); err != nil {
		return err
	}
	return writeAtomic(p, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Get reads the object and its sidecar.
func (b *FilesystemBackend) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	info, err := b.Stat(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	p, _ := b.path(key)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("read object: %w", err)
	}
	return data, info, nil
}

// Stat reads the object's sidecar and file info.
func (b *FilesystemBackend) Stat(_ context.Context, key string) (ObjectInfo, error) {
	p, err := b.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}

	info := ObjectInfo{Key: key, Size: st.Size(), LastModified: st.ModTime().UTC()}
	raw, err := os.ReadFile(p + sidecarSuffix)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return info, nil
	case err != nil:
		return ObjectInfo{}, fmt.Errorf("read sidecar: %w", err)
	}
	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return ObjectInfo{}, fmt.Errorf("decode sidecar: %w", err)
	}
	info.ContentType = sc.ContentType
	info.Metadata = sc.Metadata
	return info, nil
}

// Delete removes the object and its sidecar.
func (b *FilesystemBackend) Delete(_ context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		err = ErrObjectNotFound
	}
	if rmErr := os.Remove(p + sidecarSuffix); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
		err = fmt.Errorf("remove sidecar: %w", rmErr)
	}
	return err
}
