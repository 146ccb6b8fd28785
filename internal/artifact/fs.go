package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ecowise/idftab/internal/apperr"
)

// FS implements Store on the local filesystem. A JSON sidecar
// (filename + ".meta") keeps the content type and user metadata.
type FS struct {
	root string
}

// NewFS returns a filesystem store rooted at dir, creating it if needed.
func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, fmt.Errorf("artifact: fs root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("artifact: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create root: %w", err)
	}
	return &FS{root: abs}, nil
}

func (s *FS) Driver() Driver { return DriverFS }

// safePath resolves a key against the root and rejects traversal outside it.
func (s *FS) safePath(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("artifact: empty key")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("artifact: invalid key %q", key)
	}
	return filepath.Join(s.root, cleaned), nil
}

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (s *FS) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	path, err := s.safePath(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Info{}, fmt.Errorf("artifact: create dir: %w", err)
	}

	// Stream through a temp file and rename into place so readers never see
	// a half-written artifact.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return Info{}, fmt.Errorf("artifact: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Info{}, fmt.Errorf("artifact: write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Info{}, fmt.Errorf("artifact: move into place: %w", err)
	}

	meta := metaFile{ContentType: opts.ContentType, Metadata: opts.Metadata}
	data, _ := json.Marshal(meta)
	if err := os.WriteFile(path+".meta", data, 0o644); err != nil {
		return Info{}, fmt.Errorf("artifact: write meta: %w", err)
	}

	return Info{
		Key:          key,
		Size:         size,
		ContentType:  opts.ContentType,
		Metadata:     opts.Metadata,
		LastModified: time.Now().UTC(),
	}, nil
}

func (s *FS) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	info, err := s.Head(ctx, key)
	if err != nil {
		return Info{}, nil, err
	}
	path, _ := s.safePath(key)
	f, err := os.Open(path)
	if err != nil {
		return Info{}, nil, fmt.Errorf("artifact: open %s: %w", key, err)
	}
	return info, f, nil
}

func (s *FS) Head(_ context.Context, key string) (Info, error) {
	path, err := s.safePath(key)
	if err != nil {
		return Info{}, err
	}
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, fmt.Errorf("artifact: %s: %w", key, apperr.ErrNotFound)
		}
		return Info{}, fmt.Errorf("artifact: stat %s: %w", key, err)
	}

	info := Info{Key: key, Size: st.Size(), LastModified: st.ModTime().UTC()}
	if data, err := os.ReadFile(path + ".meta"); err == nil {
		var meta metaFile
		if json.Unmarshal(data, &meta) == nil {
			info.ContentType = meta.ContentType
			info.Metadata = meta.Metadata
		}
	}
	return info, nil
}

func (s *FS) Delete(_ context.Context, key string) error {
	path, err := s.safePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("artifact: %s: %w", key, apperr.ErrNotFound)
		}
		return fmt.Errorf("artifact: delete %s: %w", key, err)
	}
	_ = os.Remove(path + ".meta")
	return nil
}

func (s *FS) List(ctx context.Context, prefix string) ([]Info, error) {
	var infos []Info
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || strings.HasSuffix(p, ".meta") {
			return walkErr
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := s.Head(ctx, key)
		if err != nil {
			return err
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: list: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *FS) PresignURL(context.Context, string, SignedURLOptions) (string, error) {
	return "", ErrUnsupported
}

var _ Store = (*FS)(nil)
