// Package blob stores raw downloads, extracted text and corpus files in named
// containers, either on an S3-compatible service or on the local filesystem.
package blob

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/xhad/verdict/internal/types"
	"github.com/xhad/verdict/pkg/config"
)

var (
	ErrNotFound = errors.New("blob not found")
	ErrExists   = errors.New("blob already exists")
)

const (
	BackendS3 = "s3"
	BackendFS = "fs"
)

// Open returns the container named container on the configured backend.
func Open(cfg config.StorageConfig, container string) (types.BlobStore, error) {
	switch cfg.Backend {
	case BackendS3:
		return NewS3(cfg, container)
	case BackendFS, "":
		return NewFS(cfg.Root, container)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid blob name %q", name)
	}
	return nil
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".jsonl":
		return "application/x-ndjson"
	case ".pdf":
		return "application/pdf"
	case ".html":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

// BaseName strips any key prefix and the extension: "dir/a.b.pdf" -> "a.b".
func BaseName(name string) string {
	name = path.Base(name)
	return strings.TrimSuffix(name, path.Ext(name))
}
