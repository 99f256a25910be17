// Package scraper downloads web novels from supported platforms. Each
// platform implements Scraper; the Registry picks one by URL.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

// userAgent is a plain browser identity; some platforms refuse the Go
// default.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrUnsupportedURL is returned when no scraper claims a URL.
var ErrUnsupportedURL = errors.New("unsupported URL")

// NovelInfo is the metadata needed to start a download.
type NovelInfo struct {
	// Title is the novel's title in the source language.
	Title string
	// BaseURL is the canonical novel URL used to fetch the chapter
	// list.
	BaseURL string
	// NovelID is the platform-unique identifier.
	NovelID string
}

// ChapterInfo is one entry of a novel's table of contents.
type ChapterInfo struct {
	Title  string
	URL    string
	Number int
}

// ChapterList is a novel's table of contents. A one-shot has no
// per-chapter entries; its whole story lives on the main page.
type ChapterList struct {
	OneShot  bool
	Chapters []ChapterInfo
}

// Len returns the number of chapters, counting a one-shot as 1.
func (cl ChapterList) Len() int {
	if cl.OneShot {
		return 1
	}
	return len(cl.Chapters)
}

// Scraper is one platform backend.
type Scraper interface {
	// Name is the human-readable platform name.
	Name() string
	// ID is the identifier used in file paths (lowercase, no spaces).
	ID() string
	// CanHandle reports whether this scraper understands url.
	CanHandle(url string) bool
	// NovelInfo fetches novel metadata from a novel URL.
	NovelInfo(ctx context.Context, url string) (*NovelInfo, error)
	// ChapterList fetches the table of contents from the base URL.
	ChapterList(ctx context.Context, baseURL string) (*ChapterList, error)
	// DownloadChapter fetches and cleans one chapter's text.
	DownloadChapter(ctx context.Context, chapterURL string) (string, error)
}

// Config controls scraper politeness.
type Config struct {
	// Delay is the pause before each page fetch.
	Delay time.Duration
	// Debug enables request logging.
	Debug bool
	// CookieDir is searched for exported browser cookie files, for
	// platforms that need a logged-in session. Empty disables lookup.
	CookieDir string
}

// Registry holds the available scrapers.
type Registry struct {
	scrapers []Scraper
}

// NewRegistry builds a registry with every supported platform.
func NewRegistry(cfg Config) *Registry {
	return &Registry{scrapers: []Scraper{
		NewSyosetu(cfg),
		NewKakuyomu(cfg),
		NewPixiv(cfg),
	}}
}

// ForURL returns the scraper that handles url.
func (r *Registry) ForURL(url string) (Scraper, error) {
	for _, s := range r.scrapers {
		if s.CanHandle(url) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
}

// All returns every registered scraper.
func (r *Registry) All() []Scraper {
	return r.scrapers
}

// Identify resolves the scraper ID and platform work ID for url from
// the URL alone, without fetching anything.
func (r *Registry) Identify(url string) (module, workID string, err error) {
	s, err := r.ForURL(url)
	if err != nil {
		return "", "", err
	}

	switch s.(type) {
	case *Syosetu:
		workID, err = syosetuNovelID(url)
	case *Kakuyomu:
		workID, err = kakuyomuWorkID(url)
	case *Pixiv:
		workID, err = pixivWorkID(url)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}
	if err != nil {
		return "", "", err
	}
	return s.ID(), workID, nil
}

// httpClient is the shared per-platform page fetcher: browser user
// agent, persistent cookies, and a politeness delay before every GET.
type httpClient struct {
	client *http.Client
	cfg    Config
}

func newPageClient(cfg Config) *httpClient {
	jar, _ := cookiejar.New(nil)
	return &httpClient{
		client: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		cfg: cfg,
	}
}

// get performs a rate-limited GET and returns the body. extraHeaders
// may be nil.
func (h *httpClient) get(ctx context.Context, pageURL string, extraHeaders map[string]string) ([]byte, error) {
	if h.cfg.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(h.cfg.Delay):
		}
	}
	if h.cfg.Debug {
		fmt.Fprintf(os.Stderr, "[scraper] GET %s\n", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// resolveURL resolves a possibly relative href against base.
func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	if strings.HasPrefix(href, "/") {
		if baseURL, err := url.Parse(base); err == nil {
			if resolved, err := baseURL.Parse(href); err == nil {
				return resolved.String()
			}
		}
	}

	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}
