package types

import (
	"context"
	"time"

	"github.com/xhad/verdict/internal/models"
)

// Extractor turns the bytes of one format into plain text.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(data []byte) (string, error)

func (f ExtractorFunc) Extract(data []byte) (string, error) { return f(data) }

// BlobInfo describes one object of a blob container.
type BlobInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// BlobStore is a single named container of blobs.
type BlobStore interface {
	List(ctx context.Context) ([]BlobInfo, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	Put(ctx context.Context, name string, data []byte, metadata map[string]string, overwrite bool) error
}

// Embedder produces one vector for one text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchFilter narrows record lookups.
type SearchFilter struct {
	Court      string
	Upisnik    string
	GodinaFrom int
	GodinaTo   int
}

// SearchResult is one ranked record.
type SearchResult struct {
	Score  float64       `json:"score"`
	Record models.Record `json:"record"`
}

// RecordStore persists produced records.
type RecordStore interface {
	Upsert(ctx context.Context, records []models.Record) error
	Search(ctx context.Context, embedding []float32, filter SearchFilter, limit int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close()
}
