package scraper

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Kakuyomu handles kakuyomu.jp. The site generates hashed CSS class
// names, so selectors match on class prefixes.
type Kakuyomu struct {
	client *httpClient
}

var (
	kakuyomuURLRE        = regexp.MustCompile(`https?://kakuyomu\.jp/works/(\d+)(?:/episodes/\d+)?/?`)
	kakuyomuWorkIDRE     = regexp.MustCompile(`/works/(\d+)`)
	kakuyomuEpisodeSufRE = regexp.MustCompile(`/episodes/\d+/?$`)
)

// NewKakuyomu builds the Kakuyomu scraper.
func NewKakuyomu(cfg Config) *Kakuyomu {
	return &Kakuyomu{client: newPageClient(cfg)}
}

func (k *Kakuyomu) Name() string { return "Kakuyomu" }
func (k *Kakuyomu) ID() string   { return "kakuyomu" }

func (k *Kakuyomu) CanHandle(url string) bool {
	return kakuyomuURLRE.MatchString(url)
}

func (k *Kakuyomu) fetchDoc(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := k.client.get(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func (k *Kakuyomu) NovelInfo(ctx context.Context, url string) (*NovelInfo, error) {
	if !k.CanHandle(url) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}

	baseURL := kakuyomuBaseURL(url)
	doc, err := k.fetchDoc(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	title, err := k.extractTitle(doc)
	if err != nil {
		return nil, err
	}
	workID, err := kakuyomuWorkID(url)
	if err != nil {
		return nil, err
	}

	return &NovelInfo{Title: title, BaseURL: baseURL, NovelID: workID}, nil
}

func (k *Kakuyomu) extractTitle(doc *goquery.Document) (string, error) {
	heading := doc.Find(`h1[class^="Heading_heading"] a`).First()
	if attr, ok := heading.Attr("title"); ok {
		if title := strings.TrimSpace(attr); title != "" {
			return title, nil
		}
	}
	if title := strings.TrimSpace(heading.Text()); title != "" {
		return title, nil
	}
	return "", fmt.Errorf("novel title not found")
}

func kakuyomuWorkID(url string) (string, error) {
	m := kakuyomuWorkIDRE.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("could not extract work ID from %s", url)
	}
	return m[1], nil
}

// kakuyomuBaseURL strips an /episodes/N suffix so episode links work as
// entry points too.
func kakuyomuBaseURL(url string) string {
	return strings.TrimRight(kakuyomuEpisodeSufRE.ReplaceAllString(url, ""), "/")
}

func kakuyomuResolveURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return "https://kakuyomu.jp" + href
}

func (k *Kakuyomu) ChapterList(ctx context.Context, baseURL string) (*ChapterList, error) {
	doc, err := k.fetchDoc(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	var chapters []ChapterInfo
	doc.Find(`a[class^="WorkTocSection_link"]`).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		chapters = append(chapters, ChapterInfo{
			Title:  strings.TrimSpace(a.Text()),
			URL:    strings.TrimRight(kakuyomuResolveURL(href), "/"),
			Number: len(chapters) + 1,
		})
	})

	// The platform has no one-shot layout; an empty index is just empty.
	return &ChapterList{Chapters: chapters}, nil
}

func (k *Kakuyomu) DownloadChapter(ctx context.Context, chapterURL string) (string, error) {
	doc, err := k.fetchDoc(ctx, chapterURL)
	if err != nil {
		return "", err
	}

	content := doc.Find("div.widget-episodeBody").First()
	if content.Length() == 0 {
		return "", fmt.Errorf("chapter content not found")
	}

	var lines []string
	content.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) == 0 {
		return strings.TrimSpace(content.Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}
