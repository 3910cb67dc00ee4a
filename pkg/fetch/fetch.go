// Package fetch downloads court decisions into the raw container.
package fetch

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xhad/verdict/internal/types"
	"github.com/xhad/verdict/pkg/sniff"
)

const maxContentTypeLen = 200

type FetcherConfig struct {
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	UserAgent  string
	OnProgress func(r Result)
}

// Result describes the outcome for one URL.
type Result struct {
	URL    string
	Name   string
	Format string
	Cached bool
	Err    error
}

type Stats struct {
	Seen     int
	Uploaded int
	Cached   int
	Failed   int
}

type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
	store   types.BlobStore
}

func NewWithConfig(config FetcherConfig, store types.BlobStore) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 0.5 // one request every 2 seconds
	}
	if config.UserAgent == "" {
		config.UserAgent = "corpus-agent/1.0"
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		store:   store,
	}
}

// Fetch downloads every URL in order. Per-URL failures are logged and counted;
// only cancellation of ctx stops the run early.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) (Stats, error) {
	var stats Stats
	for _, u := range urls {
		// Apply rate limiting
		if err := f.limiter.Wait(ctx); err != nil {
			return stats, err
		}

		res := f.fetchOne(ctx, u)
		stats.Seen++
		switch {
		case res.Err != nil:
			stats.Failed++
			slog.Warn("fetch failed", "url", u, "err", res.Err)
			// back off for one extra slot after an error
			if err := f.limiter.Wait(ctx); err != nil {
				return stats, err
			}
		case res.Cached:
			stats.Cached++
			slog.Info("fetch cached", "url", u, "blob", res.Name)
		default:
			stats.Uploaded++
			slog.Info("fetch uploaded", "url", u, "blob", res.Name, "format", res.Format)
		}
		if f.config.OnProgress != nil {
			f.config.OnProgress(res)
		}
	}
	return stats, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, u string) Result {
	res := Result{URL: u}

	data, contentType, err := f.download(ctx, u)
	if err != nil {
		res.Err = err
		return res
	}

	format := sniff.Detect(data, urlFileName(u), contentType)
	sum := sha256.Sum256(data)
	res.Name = hex.EncodeToString(sum[:]) + "." + string(format)
	res.Format = string(format)

	exists, err := f.store.Exists(ctx, res.Name)
	if err != nil {
		res.Err = err
		return res
	}
	if exists {
		res.Cached = true
		return res
	}

	metadata := map[string]string{
		"source_url":   u,
		"content_type": truncateChars(contentType, maxContentTypeLen),
	}
	if err := f.store.Put(ctx, res.Name, data, metadata, false); err != nil {
		res.Err = fmt.Errorf("store %s: %w", res.Name, err)
	}
	return res
}

func (f *Fetcher) download(ctx context.Context, u string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, u)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body of %s: %w", u, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// urlFileName is the last path segment, used as a sniffing hint.
// truncateChars keeps the first n characters of s.
func truncateChars(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func urlFileName(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Path == "" {
		return ""
	}
	return path.Base(parsed.Path)
}

// ReadURLList returns the non-blank lines that are not # comments.
func ReadURLList(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func LoadURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()
	return ReadURLList(f)
}
