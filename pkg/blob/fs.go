package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xhad/verdict/internal/types"
)

const metaSuffix = ".meta.json"

// FSStore keeps a container as a directory; metadata lives in a
// <name>.meta.json sidecar that List does not report.
type FSStore struct {
	dir string
}

var _ types.BlobStore = (*FSStore)(nil)

func NewFS(root, container string) (*FSStore, error) {
	if err := validName(container); err != nil {
		return nil, err
	}
	dir := filepath.Join(root, container)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create container %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) List(ctx context.Context) ([]types.BlobInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	var blobs []types.BlobInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), metaSuffix) || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		blobs = append(blobs, types.BlobInfo{Name: e.Name(), Size: info.Size(), LastModified: info.ModTime()})
	}
	return blobs, nil
}

func (s *FSStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return data, err
}

func (s *FSStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.dir, name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *FSStore) Put(ctx context.Context, name string, data []byte, metadata map[string]string, overwrite bool) error {
	if err := validName(name); err != nil {
		return err
	}
	target := filepath.Join(s.dir, name)
	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%s: %w", name, ErrExists)
		}
	}
	if err := writeAtomic(s.dir, target, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if len(metadata) == 0 {
		return nil
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata %s: %w", name, err)
	}
	return writeAtomic(s.dir, target+metaSuffix, meta)
}

// Metadata returns the metadata stored with name, or nil when there is none.
func (s *FSStore) Metadata(name string) (map[string]string, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, name+metaSuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", name, err)
	}
	return m, nil
}

func writeAtomic(dir, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
