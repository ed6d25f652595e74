package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "icalfeed/internal/log"
)

// Source represents a single calendar subscription.
type Source struct {
	// ID is an internal identifier used in logs and metrics.
	ID string
	// URL is the calendar endpoint. webcal:// is fetched over https.
	URL string
}

// FetchResult contains the outcome of fetching a source.
type FetchResult struct {
	Source    Source
	Body      []byte // calendar payload (either freshly fetched or from cache)
	FromCache bool   // true if the cached body was reused
}

// CacheEntry holds HTTP cache metadata and the last good body for a URL.
type CacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	Body         []byte    `json:"body,omitempty"`
}

// CacheStore persists CacheEntry values by key.
type CacheStore interface {
	LoadEntry(key string) (CacheEntry, error)
	SaveEntry(key string, e CacheEntry) error
}

// Fetcher fetches calendar feeds with HTTP caching (ETag / Last-Modified)
// backed by a CacheStore. A nil store disables caching.
type Fetcher struct {
	client *http.Client
	store  CacheStore
	now    func() time.Time
}

// NewFetcher creates a Fetcher. A nil client gets a 15s-timeout default.
func NewFetcher(client *http.Client, store CacheStore) *Fetcher {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
		}
	}
	return &Fetcher{
		client: client,
		store:  store,
		now:    time.Now,
	}
}

// ValidateURL checks that u is an absolute http, https or webcal URL and
// returns the URL to request.
func ValidateURL(u string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Host == "" {
		return "", ErrInvalidURL
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	case "webcal":
		parsed.Scheme = "https"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	return parsed.String(), nil
}

// Fetch fetches src, honoring ETag and Last-Modified. On network errors
// and non-OK answers the cached body is returned when there is one.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (FetchResult, error) {
	target, err := ValidateURL(src.URL)
	if err != nil {
		return FetchResult{}, err
	}

	key := cacheKey(src.URL)
	cached := f.loadEntry(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")

	// Conditional headers from cache metadata.
	if len(cached.Body) > 0 {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	appLog.Debug("ics fetch start", "id", src.ID, "url", appLog.RedactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		// Network error; if we have a cached body, fall back to it.
		if len(cached.Body) > 0 {
			appLog.Error("ics fetch network error, using cached body", err, "id", src.ID, "url", appLog.RedactURL(src.URL))
			return FetchResult{Source: src, Body: cached.Body, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}

		entry := CacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    f.now().UTC(),
			Body:         body,
		}
		if f.store != nil {
			if err := f.store.SaveEntry(key, entry); err != nil {
				// Log but still return the freshly fetched body.
				appLog.Error("ics cache save failed", err, "id", src.ID, "url", appLog.RedactURL(src.URL))
			}
		}

		appLog.Info("ics fetch success", "id", src.ID, "url", appLog.RedactURL(src.URL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cached.Body) == 0 {
			return FetchResult{}, ErrNotModifiedWithoutBody
		}
		appLog.Info("ics fetch not modified; using cache", "id", src.ID, "url", appLog.RedactURL(src.URL))
		return FetchResult{Source: src, Body: cached.Body, FromCache: true}, nil

	default:
		statusErr := errors.New(resp.Status)
		if len(cached.Body) > 0 {
			appLog.Error("ics fetch non-OK, using cached body", statusErr, "id", src.ID, "url", appLog.RedactURL(src.URL), "status", resp.StatusCode)
			return FetchResult{Source: src, Body: cached.Body, FromCache: true}, nil
		}
		return FetchResult{}, statusErr
	}
}

func (f *Fetcher) loadEntry(key string) CacheEntry {
	if f.store == nil {
		return CacheEntry{}
	}
	e, err := f.store.LoadEntry(key)
	if err != nil {
		return CacheEntry{}
	}
	return e
}

// cacheKey derives a stable key from the URL so tokens in query strings
// never appear in the store.
func cacheKey(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:8])
}
