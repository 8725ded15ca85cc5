// Package ics reads the owner's published calendar feeds: HTTP fetch with a
// conditional-request disk cache, VEVENT parsing and recurrence expansion.
package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"portfolio/internal/config"
	appLog "portfolio/internal/log"
)

const (
	fetchTimeout = 15 * time.Second
	maxFeedSize  = 8 << 20

	metaFile = "meta.json"
	bodyFile = "body.ics"
)

// Source is one calendar feed.
type Source struct {
	ID   string
	Name string
	URL  string
}

// SourcesFromConfig converts configured feeds, skipping ones without a URL.
func SourcesFromConfig(feeds []config.ICSConfig) []Source {
	out := make([]Source, 0, len(feeds))
	for i, f := range feeds {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			id = fmt.Sprintf("feed-%d", i)
		}
		out = append(out, Source{ID: id, Name: f.Name, URL: f.URL})
	}
	return out
}

// Feed is a fetched calendar body.
type Feed struct {
	Source Source
	Body   []byte
	// Stale is set when Body came from the disk cache, either because the
	// server answered 304 or because the fetch failed.
	Stale bool
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Fetcher downloads feeds and keeps the last good body of each on disk.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &Fetcher{client: &http.Client{Timeout: fetchTimeout}, cacheDir: cacheDir}
}

// WithHTTPClient replaces the HTTP client.
func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// FetchAll fetches every source. A failed source is logged and reported in
// the error slice; the others still produce feeds.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]Feed, []error) {
	feeds := make([]Feed, 0, len(sources))
	var errs []error
	for _, src := range sources {
		feed, err := f.Fetch(ctx, src)
		if err != nil {
			appLog.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			errs = append(errs, fmt.Errorf("%s: %w", src.ID, err))
			continue
		}
		feeds = append(feeds, feed)
	}
	return feeds, errs
}

// Fetch downloads one source with If-None-Match/If-Modified-Since. When the
// server is unreachable or answers an error status, the cached body is
// served instead if there is one.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Feed, error) {
	if src.URL == "" {
		return Feed{}, errors.New("ics: source url is empty")
	}

	dir := f.entryDir(src.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Feed{}, err
	}
	meta, _ := readMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, bodyFile))

	stale := func(cause error) (Feed, error) {
		if len(cached) == 0 {
			return Feed{}, cause
		}
		appLog.Warn("ics serving cached body", "id", src.ID, "url", redactURL(src.URL), "cause", cause.Error())
		return Feed{Source: src, Body: cached, Stale: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return Feed{}, err
	}
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return stale(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if len(cached) == 0 {
			return Feed{}, errors.New("ics: 304 Not Modified without a cached body")
		}
		appLog.Debug("ics not modified", "id", src.ID)
		return Feed{Source: src, Body: cached, Stale: true}, nil

	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
		if err != nil {
			return stale(err)
		}
		meta := cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			FetchedAt:    time.Now().UTC(),
		}
		if err := writeEntry(dir, meta, body); err != nil {
			appLog.Error("ics cache write failed", err, "id", src.ID)
		}
		appLog.Info("ics fetched", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return Feed{Source: src, Body: body}, nil

	default:
		return stale(fmt.Errorf("ics: unexpected status %s", resp.Status))
	}
}

// entryDir is the per-URL cache directory. The URL may carry a secret
// token, so only its hash touches the filesystem.
func (f *Fetcher) entryDir(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func readMeta(dir string) (cacheMeta, error) {
	var m cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

// writeEntry writes the body before the metadata so the metadata never
// describes a body that is not there.
func writeEntry(dir string, m cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, bodyFile), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, metaFile), data, 0o600)
}

// redactURL keeps scheme and host only. Private feed URLs embed secrets in
// the path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
