package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/verdict/internal/models"
	"github.com/xhad/verdict/internal/types"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 25
)

type RecordStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// RecordStore keeps one row per labeled decision, keyed by doc_id. When an
// embedder is set, the decision paragraph is embedded on upsert.
type RecordStore struct {
	config   RecordStoreConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

var _ types.RecordStore = (*RecordStore)(nil)

const recordColumns = `doc_id, file_name, court, court_slug, upisnik, broj, godina,
	gross_negligence, not_gross_negligence, decision_paragraph, paragraph_index,
	paragraph_count, matched_spans, auto_rule, confidence, abstain,
	verification_status, label_source, verified_label, text_hash, ingested_at, char_len`

func NewWithConfig(ctx context.Context, config RecordStoreConfig, embedder types.Embedder) (*RecordStore, error) {
	if config.TableName == "" {
		config.TableName = "court_decisions"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rs := &RecordStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := rs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return rs, nil
}

func (rs *RecordStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := rs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			doc_id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			court TEXT NOT NULL,
			court_slug TEXT NOT NULL,
			upisnik TEXT NOT NULL,
			broj INTEGER NOT NULL,
			godina INTEGER NOT NULL,
			gross_negligence SMALLINT NOT NULL,
			not_gross_negligence SMALLINT NOT NULL,
			decision_paragraph TEXT NOT NULL,
			paragraph_index INTEGER,
			paragraph_count INTEGER NOT NULL,
			matched_spans JSONB NOT NULL,
			auto_rule TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			abstain BOOLEAN NOT NULL,
			verification_status TEXT NOT NULL,
			label_source TEXT NOT NULL,
			verified_label SMALLINT,
			text_hash TEXT NOT NULL,
			ingested_at TIMESTAMPTZ NOT NULL,
			char_len INTEGER NOT NULL,
			embedding vector(%d)
		)`, rs.config.TableName, rs.config.VectorDim)

	_, err = rs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// Create vector index
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		rs.config.TableName, rs.config.TableName)

	_, err = rs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Upsert writes records in transactions of BatchSize rows.
func (rs *RecordStore) Upsert(ctx context.Context, records []models.Record) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (%s, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (doc_id) DO UPDATE SET
			decision_paragraph = EXCLUDED.decision_paragraph,
			paragraph_index = EXCLUDED.paragraph_index,
			paragraph_count = EXCLUDED.paragraph_count,
			matched_spans = EXCLUDED.matched_spans,
			auto_rule = EXCLUDED.auto_rule,
			confidence = EXCLUDED.confidence,
			abstain = EXCLUDED.abstain,
			gross_negligence = EXCLUDED.gross_negligence,
			not_gross_negligence = EXCLUDED.not_gross_negligence,
			ingested_at = EXCLUDED.ingested_at,
			embedding = COALESCE(EXCLUDED.embedding, %s.embedding)`,
		rs.config.TableName, recordColumns, rs.config.TableName)

	for start := 0; start < len(records); start += rs.config.BatchSize {
		end := min(start+rs.config.BatchSize, len(records))
		if err := rs.upsertBatch(ctx, stmt, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (rs *RecordStore) upsertBatch(ctx context.Context, stmt string, records []models.Record) error {
	// Embed outside the transaction
	args := make([][]any, len(records))
	for i, rec := range records {
		a, err := rs.rowArgs(ctx, rec)
		if err != nil {
			return err
		}
		args[i] = a
	}

	tx, err := rs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, a := range args {
		if _, err := tx.Exec(ctx, stmt, a...); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", records[i].DocID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (rs *RecordStore) rowArgs(ctx context.Context, rec models.Record) ([]any, error) {
	spans, err := json.Marshal(rec.MatchedSpans)
	if err != nil {
		return nil, fmt.Errorf("encode spans of %s: %w", rec.DocID, err)
	}
	ingested, err := time.Parse(time.RFC3339Nano, rec.IngestedAt)
	if err != nil {
		return nil, fmt.Errorf("ingested_at of %s: %w", rec.DocID, err)
	}

	var embedding any
	if rs.embedder != nil && rec.DecisionParagraph != "" {
		vec, err := rs.embedder.Embed(ctx, sanitizeUTF8(rec.DecisionParagraph))
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding for %s: %w", rec.DocID, err)
		}
		embedding = pgvector.NewVector(vec)
	}

	return []any{
		rec.DocID, rec.FileName, rec.Court, rec.CourtSlug, rec.Upisnik, rec.Broj, rec.Godina,
		rec.GrossNegligence, rec.NotGrossNegligence, sanitizeUTF8(rec.DecisionParagraph), rec.ParagraphIndex,
		rec.ParagraphCount, spans, rec.AutoRule, rec.Confidence, rec.Abstain,
		rec.VerificationStatus, rec.LabelSource, rec.VerifiedLabel, rec.TextHash, ingested, rec.CharLen,
		embedding,
	}, nil
}

// ClampLimit maps a requested result count into [1, MaxSearchLimit];
// zero or negative means DefaultSearchLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}

func buildSearchQuery(table string, embedding []float32, filter types.SearchFilter, limit int) (string, []any) {
	args := []any{pgvector.NewVector(embedding)}
	where := []string{"embedding IS NOT NULL"}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Court != "" {
		where = append(where, "lower(court) = lower("+arg(filter.Court)+")")
	}
	if filter.Upisnik != "" {
		where = append(where, "lower(upisnik) = lower("+arg(filter.Upisnik)+")")
	}
	if filter.GodinaFrom > 0 {
		where = append(where, "godina >= "+arg(filter.GodinaFrom))
	}
	if filter.GodinaTo > 0 {
		where = append(where, "godina <= "+arg(filter.GodinaTo))
	}

	query := fmt.Sprintf(`
		SELECT %s, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT %s`,
		recordColumns, table, strings.Join(where, " AND "), arg(ClampLimit(limit)))
	return query, args
}

// Search ranks records by cosine similarity of their decision paragraph.
func (rs *RecordStore) Search(ctx context.Context, embedding []float32, filter types.SearchFilter, limit int) ([]types.SearchResult, error) {
	query, args := buildSearchQuery(rs.config.TableName, embedding, filter, limit)
	rows, err := rs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var results []types.SearchResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func scanResult(rows pgx.Rows) (types.SearchResult, error) {
	var (
		res      types.SearchResult
		rec      = &res.Record
		spans    []byte
		ingested time.Time
	)
	err := rows.Scan(
		&rec.DocID, &rec.FileName, &rec.Court, &rec.CourtSlug, &rec.Upisnik, &rec.Broj, &rec.Godina,
		&rec.GrossNegligence, &rec.NotGrossNegligence, &rec.DecisionParagraph, &rec.ParagraphIndex,
		&rec.ParagraphCount, &spans, &rec.AutoRule, &rec.Confidence, &rec.Abstain,
		&rec.VerificationStatus, &rec.LabelSource, &rec.VerifiedLabel, &rec.TextHash, &ingested, &rec.CharLen,
		&res.Score,
	)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(spans, &rec.MatchedSpans); err != nil {
		return res, fmt.Errorf("decode matched_spans: %w", err)
	}
	rec.IngestedAt = ingested.UTC().Format(time.RFC3339Nano)
	return res, nil
}

func (rs *RecordStore) Count(ctx context.Context) (int, error) {
	var n int
	err := rs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", rs.config.TableName)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func (rs *RecordStore) Close() {
	if rs.pool != nil {
		rs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
