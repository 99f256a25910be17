package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKakuyomuCanHandle(t *testing.T) {
	k := NewKakuyomu(Config{})

	valid := []string{
		"https://kakuyomu.jp/works/1177354054880238351",
		"https://kakuyomu.jp/works/1177354054880238351/",
		"https://kakuyomu.jp/works/1177354054880238351/episodes/1177354054880238416",
	}
	for _, url := range valid {
		if !k.CanHandle(url) {
			t.Errorf("CanHandle(%q) = false, want true", url)
		}
	}

	invalid := []string{
		"https://kakuyomu.jp/users/someone",
		"https://ncode.syosetu.com/n1234ab/",
		"https://kakuyomu.jp/",
	}
	for _, url := range invalid {
		if k.CanHandle(url) {
			t.Errorf("CanHandle(%q) = true, want false", url)
		}
	}
}

func TestKakuyomuWorkID(t *testing.T) {
	id, err := kakuyomuWorkID("https://kakuyomu.jp/works/1177354054880238351/episodes/5")
	if err != nil {
		t.Fatalf("kakuyomuWorkID() failed: %v", err)
	}
	if id != "1177354054880238351" {
		t.Errorf("work ID = %q", id)
	}

	if _, err := kakuyomuWorkID("https://kakuyomu.jp/users/someone"); err == nil {
		t.Error("expected error for URL without a work ID")
	}
}

func TestKakuyomuBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://kakuyomu.jp/works/123/episodes/456": "https://kakuyomu.jp/works/123",
		"https://kakuyomu.jp/works/123/":             "https://kakuyomu.jp/works/123",
		"https://kakuyomu.jp/works/123":              "https://kakuyomu.jp/works/123",
	}
	for url, want := range cases {
		if got := kakuyomuBaseURL(url); got != want {
			t.Errorf("kakuyomuBaseURL(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestKakuyomuResolveURL(t *testing.T) {
	if got := kakuyomuResolveURL("/works/123/episodes/456"); got != "https://kakuyomu.jp/works/123/episodes/456" {
		t.Errorf("resolved = %q", got)
	}
	if got := kakuyomuResolveURL("https://kakuyomu.jp/works/123"); got != "https://kakuyomu.jp/works/123" {
		t.Errorf("absolute URL changed: %q", got)
	}
}

func TestKakuyomuExtractTitle(t *testing.T) {
	k := NewKakuyomu(Config{})

	doc := parseHTML(t, `<h1 class="Heading_heading__abc12"><a href="/works/123" title="異世界の物語">異世界…</a></h1>`)
	title, err := k.extractTitle(doc)
	if err != nil {
		t.Fatalf("extractTitle() failed: %v", err)
	}
	if title != "異世界の物語" {
		t.Errorf("title = %q, want the title attribute value", title)
	}

	noAttr := parseHTML(t, `<h1 class="Heading_heading__abc12"><a href="/works/123">本文タイトル</a></h1>`)
	title, err = k.extractTitle(noAttr)
	if err != nil {
		t.Fatalf("extractTitle() without attr failed: %v", err)
	}
	if title != "本文タイトル" {
		t.Errorf("title = %q, want link text", title)
	}

	if _, err := k.extractTitle(parseHTML(t, `<h1>plain</h1>`)); err == nil {
		t.Error("expected error when heading is missing")
	}
}

func TestKakuyomuChapterList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `
			<a class="WorkTocSection_link__xyz99" href="/works/123/episodes/1">プロローグ</a>
			<a class="WorkTocSection_link__xyz99" href="/works/123/episodes/2/">第一話</a>`)
	}))
	defer srv.Close()

	k := NewKakuyomu(Config{})
	list, err := k.ChapterList(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ChapterList() failed: %v", err)
	}
	if list.OneShot {
		t.Fatal("unexpected one-shot")
	}
	if len(list.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(list.Chapters))
	}
	if list.Chapters[0].Title != "プロローグ" || list.Chapters[0].Number != 1 {
		t.Errorf("first chapter wrong: %+v", list.Chapters[0])
	}
	if list.Chapters[1].URL != "https://kakuyomu.jp/works/123/episodes/2" {
		t.Errorf("second chapter URL = %q", list.Chapters[1].URL)
	}
}

func TestKakuyomuDownloadChapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="widget-episodeBody"><p>一行目。</p><p></p><p>二行目。</p></div>`)
	}))
	defer srv.Close()

	k := NewKakuyomu(Config{})
	content, err := k.DownloadChapter(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("DownloadChapter() failed: %v", err)
	}
	if content != "一行目。\n二行目。" {
		t.Errorf("content = %q", content)
	}
}
