// Package fs implements a filesystem-backed blob Store. Keys map to relative
// file paths under the root; a sidecar file (key + ".meta") carries content
// type and user metadata. Suitable for development and single-writer use.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"surveycore/internal/blob/core"
)

// Compile-time contract assertion.
var _ core.Store = (*Store)(nil)

const metaSuffix = ".meta"

// Store implements core.Store on the local filesystem.
type Store struct {
	root string
}

// New returns a filesystem blob store rooted at path, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./artifacts"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// sanitizeKey rejects keys that would escape the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") {
		return "", fmt.Errorf("invalid key traversal")
	}
	return clean, nil
}

type sidecar struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag,omitempty"`
}

// Put stores a new blob; errors if key exists.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return core.Info{}, err
	}
	path := filepath.Join(s.root, filepath.FromSlash(clean))
	if _, err := os.Stat(path); err == nil {
		return core.Info{}, fmt.Errorf("blob %s: %w", clean, core.ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return core.Info{}, fmt.Errorf("create dirs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return core.Info{}, fmt.Errorf("create blob: %w", err)
	}
	hash := sha256.New()
	_, err = io.Copy(io.MultiWriter(f, hash), r)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(path)
		return core.Info{}, fmt.Errorf("write blob: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return core.Info{}, fmt.Errorf("close blob: %w", closeErr)
	}
	meta := sidecar{
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
		ETag:        hex.EncodeToString(hash.Sum(nil)),
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		_ = os.Remove(path)
		return core.Info{}, fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.WriteFile(path+metaSuffix, encoded, 0o640); err != nil {
		_ = os.Remove(path)
		return core.Info{}, fmt.Errorf("write sidecar: %w", err)
	}
	return s.stat(clean, path)
}

func (s *Store) stat(key, path string) (core.Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
		}
		return core.Info{}, err
	}
	info := core.Info{
		Key:          key,
		Size:         st.Size(),
		LastModified: st.ModTime().UTC(),
	}
	if raw, err := os.ReadFile(path + metaSuffix); err == nil {
		var meta sidecar
		if err := json.Unmarshal(raw, &meta); err == nil {
			info.ContentType = meta.ContentType
			info.Metadata = meta.Metadata
			info.ETag = meta.ETag
		}
	}
	return info, nil
}

// Get returns blob metadata and a reader over its content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	path := filepath.Join(s.root, filepath.FromSlash(clean))
	info, err := s.stat(clean, path)
	if err != nil {
		return core.Info{}, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return core.Info{}, nil, fmt.Errorf("open blob: %w", err)
	}
	return info, f, nil
}

// Head returns blob metadata.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return core.Info{}, err
	}
	return s.stat(clean, filepath.Join(s.root, filepath.FromSlash(clean)))
}

// Delete removes the blob and its sidecar; returns whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	path := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	_ = os.Remove(path + metaSuffix)
	return true, nil
}

// List walks the root and returns blobs whose key starts with prefix,
// sorted by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := s.stat(key, path)
		if err != nil {
			return err
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// SignedURL is not supported by the filesystem store.
func (s *Store) SignedURL(context.Context, string, core.SignedURLOptions) (string, error) {
	return "", core.ErrUnsupported
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }
