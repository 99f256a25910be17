package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Pixiv handles pixiv.net novels and novel series through the site's
// AJAX API. Viewing restricted works needs a logged-in session, loaded
// from an exported browser cookie file when one is present.
type Pixiv struct {
	client *httpClient
}

var (
	pixivIndividualRE = regexp.MustCompile(`https?://www\.pixiv\.net/novel/show\.php\?id=(\d+)`)
	pixivSeriesRE     = regexp.MustCompile(`https?://www\.pixiv\.net/novel/series/(\d+)`)
	unicodeEscapeRE   = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)
)

var pixivHeaders = map[string]string{
	"Accept":           "application/json, text/javascript, */*; q=0.01",
	"Accept-Language":  "en-US,en;q=0.9",
	"Referer":          "https://www.pixiv.net/",
	"X-Requested-With": "XMLHttpRequest",
}

// NewPixiv builds the Pixiv scraper, loading session cookies from
// cfg.CookieDir when a pixiv cookie export exists there.
func NewPixiv(cfg Config) *Pixiv {
	p := &Pixiv{client: newPageClient(cfg)}

	if cfg.CookieDir != "" {
		source, err := loadNetscapeCookies(p.client.client.Jar, cfg.CookieDir, []string{"pixiv"})
		if cfg.Debug {
			switch {
			case err != nil:
				fmt.Fprintf(os.Stderr, "[pixiv] failed to load cookies: %v\n", err)
			case source != "":
				fmt.Fprintf(os.Stderr, "[pixiv] loaded cookie file: %s\n", source)
			default:
				fmt.Fprintln(os.Stderr, "[pixiv] no cookie file found")
			}
		}
	}
	return p
}

func (p *Pixiv) Name() string { return "Pixiv" }
func (p *Pixiv) ID() string   { return "pixiv" }

func (p *Pixiv) CanHandle(url string) bool {
	return pixivIndividualRE.MatchString(url) || pixivSeriesRE.MatchString(url)
}

func pixivWorkID(url string) (string, error) {
	if m := pixivIndividualRE.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	if m := pixivSeriesRE.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("could not extract novel ID from %s", url)
}

// ajax fetches a Pixiv API URL and unmarshals the body field of the
// response envelope into out.
func (p *Pixiv) ajax(ctx context.Context, apiURL string, out interface{}) error {
	raw, err := p.client.get(ctx, apiURL, pixivHeaders)
	if err != nil {
		return err
	}

	var envelope struct {
		Error   bool            `json:"error"`
		Message string          `json:"message"`
		Body    json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to parse API response: %w", err)
	}
	if envelope.Error {
		return fmt.Errorf("API error: %s", envelope.Message)
	}
	if len(envelope.Body) == 0 {
		return fmt.Errorf("API response missing body")
	}
	return json.Unmarshal(envelope.Body, out)
}

type pixivNovelBody struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	SeriesID string `json:"seriesId"`
}

func (p *Pixiv) NovelInfo(ctx context.Context, url string) (*NovelInfo, error) {
	if m := pixivIndividualRE.FindStringSubmatch(url); m != nil {
		var body pixivNovelBody
		if err := p.ajax(ctx, "https://www.pixiv.net/ajax/novel/"+m[1], &body); err != nil {
			return nil, err
		}
		return &NovelInfo{
			Title:   unescapeUnicode(body.Title),
			BaseURL: url,
			NovelID: m[1],
		}, nil
	}

	if m := pixivSeriesRE.FindStringSubmatch(url); m != nil {
		var body struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		if err := p.ajax(ctx, "https://www.pixiv.net/ajax/novel/series/"+m[1], &body); err != nil {
			return nil, err
		}
		return &NovelInfo{
			Title:   unescapeUnicode(body.Title),
			BaseURL: url,
			NovelID: m[1],
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
}

func (p *Pixiv) ChapterList(ctx context.Context, baseURL string) (*ChapterList, error) {
	if pixivIndividualRE.MatchString(baseURL) {
		// A standalone novel is a one-shot.
		return &ChapterList{OneShot: true}, nil
	}
	m := pixivSeriesRE.FindStringSubmatch(baseURL)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, baseURL)
	}

	chapters, err := p.seriesChapters(ctx, m[1])
	if err != nil {
		return nil, err
	}
	return &ChapterList{Chapters: chapters}, nil
}

type pixivSeriesContent struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Series struct {
		ContentOrder int `json:"contentOrder"`
	} `json:"series"`
}

// seriesChapters pages through the series content API. Chapter URLs
// are novel IDs; DownloadChapter resolves them.
func (p *Pixiv) seriesChapters(ctx context.Context, seriesID string) ([]ChapterInfo, error) {
	const limit = 30

	var all []ChapterInfo
	lastOrder := 0

	for {
		apiURL := fmt.Sprintf(
			"https://www.pixiv.net/ajax/novel/series_content/%s?limit=%d&last_order=%d&order_by=asc",
			seriesID, limit, lastOrder)

		var body struct {
			Page struct {
				SeriesContents []pixivSeriesContent `json:"seriesContents"`
			} `json:"page"`
		}
		if err := p.ajax(ctx, apiURL, &body); err != nil {
			// A mid-pagination failure keeps what was fetched.
			if len(all) > 0 {
				break
			}
			return nil, err
		}

		contents := body.Page.SeriesContents
		if len(contents) == 0 {
			break
		}

		for _, content := range contents {
			title := strings.TrimSpace(content.Title)
			if title == "" {
				title = fmt.Sprintf("Chapter %d", content.Series.ContentOrder)
			} else {
				title = unescapeUnicode(title)
			}
			all = append(all, ChapterInfo{
				Title:  title,
				URL:    content.ID,
				Number: content.Series.ContentOrder,
			})
		}

		if len(contents) < limit {
			break
		}
		lastOrder = contents[len(contents)-1].Series.ContentOrder
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })
	for i := range all {
		all[i].Number = i + 1
	}
	return all, nil
}

func (p *Pixiv) DownloadChapter(ctx context.Context, chapterURL string) (string, error) {
	novelID := chapterURL
	if strings.HasPrefix(chapterURL, "http") {
		m := pixivIndividualRE.FindStringSubmatch(chapterURL)
		if m == nil {
			return "", fmt.Errorf("could not extract novel ID from %s", chapterURL)
		}
		novelID = m[1]
	}

	var body pixivNovelBody
	if err := p.ajax(ctx, "https://www.pixiv.net/ajax/novel/"+novelID, &body); err != nil {
		return "", err
	}
	if body.Content == "" {
		return "", fmt.Errorf("novel content not found for id %s", novelID)
	}
	return unescapeUnicode(body.Content), nil
}

// unescapeUnicode replaces literal \uXXXX sequences, which the API
// sometimes leaves in titles and content, with their characters.
// Invalid sequences are kept as-is.
func unescapeUnicode(text string) string {
	if !strings.Contains(text, `\u`) {
		return text
	}
	return unicodeEscapeRE.ReplaceAllStringFunc(text, func(match string) string {
		code, err := strconv.ParseUint(match[2:], 16, 32)
		if err != nil {
			return match
		}
		return string(rune(code))
	})
}
