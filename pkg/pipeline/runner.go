package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/xhad/verdict/internal/models"
	"github.com/xhad/verdict/internal/types"
	"github.com/xhad/verdict/pkg/blob"
	"github.com/xhad/verdict/pkg/corpus"
)

type RunnerConfig struct {
	Workers        int
	GoldBlobName   string
	CorpusBlobName string
	// OnProgress is called once per listed blob, possibly concurrently.
	OnProgress func(name string, err error)
}

// Stores are the three containers the batch stages read and write.
type Stores struct {
	Raw    types.BlobStore
	Text   types.BlobStore
	Corpus types.BlobStore
}

// Stats summarizes one stage run.
type Stats struct {
	Seen    int
	Written int
	Skipped map[string]int
}

func (s *Stats) skip(reason string) {
	if s.Skipped == nil {
		s.Skipped = make(map[string]int)
	}
	s.Skipped[reason]++
}

func (s Stats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Runner executes the batch stages with a bounded worker pool. Results are
// merged in listing order, so outputs do not depend on scheduling.
type Runner struct {
	config   RunnerConfig
	pipeline *Pipeline
	stores   Stores
	records  types.RecordStore
}

func NewRunner(config RunnerConfig, p *Pipeline, stores Stores, records types.RecordStore) *Runner {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.GoldBlobName == "" {
		config.GoldBlobName = "gross_negligence_gold_candidates.jsonl"
	}
	if config.CorpusBlobName == "" {
		config.CorpusBlobName = "corpus_anon.jsonl"
	}
	return &Runner{config: config, pipeline: p, stores: stores, records: records}
}

type outcome[T any] struct {
	name  string
	value T
	err   error
}

// each applies fn to every blob with at most workers in flight. Per-blob
// errors are returned in the outcomes; only cancellation fails the call.
func each[T any](ctx context.Context, workers int, blobs []types.BlobInfo, onProgress func(string, error), fn func(context.Context, string) (T, error)) ([]outcome[T], error) {
	out := make([]outcome[T], len(blobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, b := range blobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(gctx, b.Name)
			out[i] = outcome[T]{name: b.Name, value: v, err: err}
			if onProgress != nil {
				onProgress(b.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func logSkip(stage, name string, err error) {
	reason := Reason(err)
	if reason == ReasonExists {
		slog.Debug("skip", "stage", stage, "doc", name, "reason", reason)
		return
	}
	slog.Warn("skip", "stage", stage, "doc", name, "reason", reason, "err", err)
}

// RunExtract turns every raw blob into <base>.txt in the text container.
func (r *Runner) RunExtract(ctx context.Context) (Stats, error) {
	var stats Stats
	blobs, err := r.stores.Raw.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list raw container: %w", err)
	}

	results, err := each(ctx, r.config.Workers, blobs, r.config.OnProgress, r.extractOne)
	if err != nil {
		return stats, err
	}
	for _, res := range results {
		stats.Seen++
		if res.err != nil {
			stats.skip(Reason(res.err))
			logSkip("extract", res.name, res.err)
			continue
		}
		stats.Written++
	}
	return stats, nil
}

func (r *Runner) extractOne(ctx context.Context, name string) (string, error) {
	out := blob.BaseName(name) + ".txt"
	exists, err := r.stores.Text.Exists(ctx, out)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%s: %w", out, blob.ErrExists)
	}

	data, err := r.stores.Raw.Get(ctx, name)
	if err != nil {
		return "", err
	}
	doc, err := r.pipeline.Extract(models.RawDocument{Name: name, Data: data})
	if err != nil {
		return "", err
	}

	metadata := map[string]string{
		"source_blob": name,
		"file_type":   string(doc.Format),
	}
	if err := r.stores.Text.Put(ctx, out, []byte(doc.Text), metadata, false); err != nil {
		return "", err
	}
	return out, nil
}

func (r *Runner) readText(ctx context.Context, name string) (string, error) {
	if !strings.HasSuffix(name, ".txt") {
		return "", fmt.Errorf("%s: %w", name, errNotText)
	}
	data, err := r.stores.Text.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// RunLabel classifies every text blob and writes the records as one JSONL
// blob, replacing the previous one. Records are also upserted into the
// record store when there is one.
func (r *Runner) RunLabel(ctx context.Context) (Stats, []models.Record, error) {
	var stats Stats
	blobs, err := r.stores.Text.List(ctx)
	if err != nil {
		return stats, nil, fmt.Errorf("list text container: %w", err)
	}

	results, err := each(ctx, r.config.Workers, blobs, r.config.OnProgress, func(ctx context.Context, name string) (models.Record, error) {
		text, err := r.readText(ctx, name)
		if err != nil {
			return models.Record{}, err
		}
		return r.pipeline.Label(name, text)
	})
	if err != nil {
		return stats, nil, err
	}

	records := make([]models.Record, 0, len(results))
	for _, res := range results {
		stats.Seen++
		if res.err != nil {
			stats.skip(Reason(res.err))
			logSkip("label", res.name, res.err)
			continue
		}
		records = append(records, res.value)
	}

	if err := writeJSONL(ctx, r.stores.Corpus, r.config.GoldBlobName, records); err != nil {
		return stats, nil, err
	}
	stats.Written = len(records)

	if r.records != nil && len(records) > 0 {
		if err := r.records.Upsert(ctx, records); err != nil {
			return stats, records, fmt.Errorf("upsert records: %w", err)
		}
	}
	return stats, records, nil
}

// RunCorpus writes every sufficiently long text blob as one corpus JSONL blob.
func (r *Runner) RunCorpus(ctx context.Context) (Stats, error) {
	var stats Stats
	blobs, err := r.stores.Text.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list text container: %w", err)
	}

	results, err := each(ctx, r.config.Workers, blobs, r.config.OnProgress, func(ctx context.Context, name string) (models.CorpusEntry, error) {
		text, err := r.readText(ctx, name)
		if err != nil {
			return models.CorpusEntry{}, err
		}
		return r.pipeline.Entry(name, text)
	})
	if err != nil {
		return stats, err
	}

	entries := make([]models.CorpusEntry, 0, len(results))
	for _, res := range results {
		stats.Seen++
		if res.err != nil {
			stats.skip(Reason(res.err))
			logSkip("corpus", res.name, res.err)
			continue
		}
		entries = append(entries, res.value)
	}

	if err := writeJSONL(ctx, r.stores.Corpus, r.config.CorpusBlobName, entries); err != nil {
		return stats, err
	}
	stats.Written = len(entries)
	return stats, nil
}

func writeJSONL[T any](ctx context.Context, store types.BlobStore, name string, items []T) error {
	var buf bytes.Buffer
	if err := corpus.WriteJSONL(&buf, items); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := store.Put(ctx, name, buf.Bytes(), nil, true); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
