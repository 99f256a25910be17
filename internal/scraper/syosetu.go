package scraper

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Syosetu handles ncode.syosetu.com and novel18.syosetu.com. The site
// has two layouts in the wild, so every lookup has a primary and a
// fallback selector.
type Syosetu struct {
	client *httpClient
}

var (
	syosetuURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`https?://ncode\.syosetu\.com/n\w+/?(\d+/?)?`),
		regexp.MustCompile(`https?://novel18\.syosetu\.com/n\w+/?(\d+/?)?`),
	}
	syosetuNovelIDRE = regexp.MustCompile(`\.com/(n[a-z0-9]+)`)
	syosetuBaseURLRE = regexp.MustCompile(`(https://[\w.]+/n\w+)/?`)
)

const syosetuContentSelector = ".p-novel__text.js-novel-text:not(.p-novel__text--preface):not(.p-novel__text--afterword)"

// NewSyosetu builds the Syosetu scraper.
func NewSyosetu(cfg Config) *Syosetu {
	return &Syosetu{client: newPageClient(cfg)}
}

func (s *Syosetu) Name() string { return "Syosetu" }
func (s *Syosetu) ID() string   { return "syosetu" }

func (s *Syosetu) CanHandle(url string) bool {
	for _, p := range syosetuURLPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

func (s *Syosetu) fetchDoc(ctx context.Context, pageURL string) (*goquery.Document, error) {
	// over18 unlocks novel18 pages; harmless elsewhere.
	body, err := s.client.get(ctx, pageURL, map[string]string{"Cookie": "over18=yes"})
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func (s *Syosetu) NovelInfo(ctx context.Context, url string) (*NovelInfo, error) {
	if !s.CanHandle(url) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}

	doc, err := s.fetchDoc(ctx, url)
	if err != nil {
		return nil, err
	}

	title, err := s.extractTitle(doc)
	if err != nil {
		return nil, err
	}
	novelID, err := syosetuNovelID(url)
	if err != nil {
		return nil, err
	}
	baseURL, err := syosetuBaseURL(url)
	if err != nil {
		return nil, err
	}

	return &NovelInfo{Title: title, BaseURL: baseURL, NovelID: novelID}, nil
}

func (s *Syosetu) extractTitle(doc *goquery.Document) (string, error) {
	for _, sel := range []string{".p-novel__title", "p.novel_title"} {
		if title := strings.TrimSpace(doc.Find(sel).First().Text()); title != "" {
			return title, nil
		}
	}
	return "", fmt.Errorf("novel title not found")
}

func syosetuNovelID(url string) (string, error) {
	m := syosetuNovelIDRE.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("could not extract novel ID from %s", url)
	}
	return m[1], nil
}

func syosetuBaseURL(url string) (string, error) {
	m := syosetuBaseURLRE.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("could not extract base URL from %s", url)
	}
	base := m[1]
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base, nil
}

func (s *Syosetu) ChapterList(ctx context.Context, baseURL string) (*ChapterList, error) {
	var all []ChapterInfo
	currentURL := baseURL

	// Index pages paginate; cap follows to guard against loops.
	const maxPages = 100

	for page := 1; page <= maxPages; page++ {
		doc, err := s.fetchDoc(ctx, currentURL)
		if err != nil {
			return nil, err
		}

		links := s.chapterLinks(doc, baseURL)
		if len(links) == 0 && page == 1 {
			if s.isOneShot(doc) {
				return &ChapterList{OneShot: true}, nil
			}
			return &ChapterList{}, nil
		}

		for _, link := range links {
			all = append(all, ChapterInfo{
				Title:  link.title,
				URL:    link.url,
				Number: len(all) + 1,
			})
		}

		next, ok := s.nextPage(doc)
		if !ok {
			break
		}
		currentURL = resolveURL(baseURL, next)
	}

	return &ChapterList{Chapters: all}, nil
}

type chapterLink struct {
	title string
	url   string
}

func (s *Syosetu) chapterLinks(doc *goquery.Document, baseURL string) []chapterLink {
	for _, sel := range []string{".p-eplist__sublist > a", ".novel_sublist2 > dd > a"} {
		var links []chapterLink
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			links = append(links, chapterLink{
				title: strings.TrimSpace(a.Text()),
				url:   resolveURL(baseURL, href),
			})
		})
		if len(links) > 0 {
			return links
		}
	}
	return nil
}

func (s *Syosetu) nextPage(doc *goquery.Document) (string, bool) {
	if href, ok := doc.Find(".c-pager__item--next").First().Attr("href"); ok {
		return href, true
	}

	// Old layout: a plain link labeled "next".
	var next string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := a.Text()
		if strings.Contains(text, "次へ") || strings.Contains(text, "次ページ") {
			if href, ok := a.Attr("href"); ok {
				next = href
				return false
			}
		}
		return true
	})
	return next, next != ""
}

// isOneShot reports whether the main page carries story content
// directly instead of a chapter index.
func (s *Syosetu) isOneShot(doc *goquery.Document) bool {
	return doc.Find(syosetuContentSelector).Length() > 0 ||
		doc.Find("#novel_honbun").Length() > 0
}

func (s *Syosetu) DownloadChapter(ctx context.Context, chapterURL string) (string, error) {
	doc, err := s.fetchDoc(ctx, chapterURL)
	if err != nil {
		return "", err
	}
	return s.extractContent(doc)
}

func (s *Syosetu) extractContent(doc *goquery.Document) (string, error) {
	content := doc.Find(syosetuContentSelector).First()
	if content.Length() == 0 {
		content = doc.Find("#novel_honbun").First()
	}
	if content.Length() == 0 {
		return "", fmt.Errorf("chapter content not found")
	}

	paragraphs := content.Find("p")
	if paragraphs.Length() == 0 {
		return strings.TrimSpace(textWithoutRuby(content)), nil
	}

	lines := make([]string, 0, paragraphs.Length())
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		lines = append(lines, textWithoutRuby(p))
	})
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// textWithoutRuby extracts text with furigana readings (<rt>) dropped,
// keeping the base characters they annotate.
func textWithoutRuby(sel *goquery.Selection) string {
	clone := sel.Clone()
	clone.Find("rt").Remove()
	return clone.Text()
}
