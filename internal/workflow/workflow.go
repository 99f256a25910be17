// Package workflow drives a full novel run: download, name scouting,
// manual mapping review, and translation. Every phase is resumable;
// files that already exist on disk are loaded instead of refetched or
// retranslated.
package workflow

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"honyaku/internal/console"
	"honyaku/internal/namefilter"
	"honyaku/internal/namestore"
	"honyaku/internal/scout"
	"honyaku/internal/scraper"
	"honyaku/internal/translator"
)

// Translator translates titles and chapter content.
type Translator interface {
	Translate(ctx context.Context, text string, isTitle bool, progress *translator.Progress) (string, error)
}

// NameCollector extracts character name votes from chapter text.
type NameCollector interface {
	CollectNames(ctx context.Context, text string) iter.Seq[[]namefilter.Entry]
}

// Options selects which chapters to process.
type Options struct {
	// StartChapter is the first chapter to process (1-based). Zero
	// means from the beginning.
	StartChapter int
	// EndChapter is the last chapter to process (inclusive). Zero
	// means through the end.
	EndChapter int
	// SkipReview disables the manual name mapping pause.
	SkipReview bool
}

// Params wires a Runner.
type Params struct {
	Console    *console.Console
	Scraper    scraper.Scraper
	Novel      *scraper.NovelInfo
	Translator Translator
	Scout      NameCollector
	Names      *namestore.Store
	// OutputDir is where story folders are created.
	OutputDir string
	// EditorCmd is the configured review editor; empty auto-detects.
	EditorCmd string
	// Stdin is read during the review pause. Defaults to os.Stdin.
	Stdin io.Reader
}

// Runner executes the pipeline for one novel.
type Runner struct {
	con       *console.Console
	scraper   scraper.Scraper
	novel     *scraper.NovelInfo
	trans     Translator
	scout     NameCollector
	names     *namestore.Store
	outputDir string
	editorCmd string
	stdin     io.Reader
}

// New builds a Runner.
func New(p Params) *Runner {
	if p.Console == nil {
		p.Console = console.New()
	}
	if p.Stdin == nil {
		p.Stdin = os.Stdin
	}
	return &Runner{
		con:       p.Console,
		scraper:   p.Scraper,
		novel:     p.Novel,
		trans:     p.Translator,
		scout:     p.Scout,
		names:     p.Names,
		outputDir: expandPath(p.OutputDir),
		editorCmd: p.EditorCmd,
		stdin:     p.Stdin,
	}
}

// chapterData is one downloaded chapter held for the later phases.
type chapterData struct {
	number  int
	title   string
	content string
}

// Run processes the novel's chapters according to opts.
func (r *Runner) Run(ctx context.Context, list *scraper.ChapterList, opts Options) error {
	start, end, err := validateChapterRange(opts.StartChapter, opts.EndChapter, list)
	if err != nil {
		return err
	}
	if !list.OneShot {
		r.con.Info("Processing chapters %d to %d of %d", start, end, len(list.Chapters))
	}

	if list.OneShot {
		return r.runOneShot(ctx, opts)
	}
	return r.runChapters(ctx, list.Chapters, start, end, opts)
}

func (r *Runner) runOneShot(ctx context.Context, opts Options) error {
	r.con.Section("Processing One-Shot Story")

	storyDir, err := r.findOrCreateStoryDir(ctx)
	if err != nil {
		return err
	}

	originalPath := filepath.Join(storyDir, "original.txt")
	var content string
	if data, err := os.ReadFile(originalPath); err == nil {
		r.con.Info("Original content already exists, loading...")
		content = string(data)
	} else {
		r.con.Step("Downloading original content...")
		content, err = r.scraper.DownloadChapter(ctx, r.novel.BaseURL)
		if err != nil {
			return fmt.Errorf("download content: %w", err)
		}
		if err := writeFileAtomic(originalPath, []byte(content)); err != nil {
			return err
		}
		r.con.Success("Saved original (%d chars)", len([]rune(content)))
	}

	scouted, err := r.scoutChapters(ctx, []chapterData{{number: 1, title: r.novel.Title, content: content}})
	if err != nil {
		return err
	}
	if scouted && !opts.SkipReview {
		if err := r.reviewNames(); err != nil {
			return err
		}
	}

	translatedPath := filepath.Join(storyDir, "oneshot.txt")
	if _, err := os.Stat(translatedPath); err == nil {
		r.con.Info("Translation already exists, skipping...")
		return nil
	}

	r.con.Step("Translating content...")
	mapped := r.names.ApplyToText(content)
	translated, err := r.trans.Translate(ctx, mapped, false,
		&translator.Progress{Chapter: 1, Chunk: 1, TotalChunks: 1})
	if err != nil {
		return fmt.Errorf("translate content: %w", err)
	}
	if err := writeFileAtomic(translatedPath, []byte(translated)); err != nil {
		return err
	}
	r.con.Success("Translation saved")
	return nil
}

func (r *Runner) runChapters(ctx context.Context, chapters []scraper.ChapterInfo, start, end int, opts Options) error {
	r.con.Section("Processing Multi-Chapter Story")

	storyDir, err := r.findOrCreateStoryDir(ctx)
	if err != nil {
		return err
	}
	originalDir := filepath.Join(storyDir, "Original")
	if err := os.MkdirAll(originalDir, 0o755); err != nil {
		return err
	}

	padding := len(strconv.Itoa(len(chapters)))

	r.con.Section("Download Phase")
	var downloaded []chapterData
	for _, ch := range chapters {
		if ch.Number < start || ch.Number > end {
			continue
		}

		filename := fmt.Sprintf("%0*d - %s.txt", padding, ch.Number, sanitizeFilename(ch.Title))
		originalPath := filepath.Join(originalDir, filename)

		var content string
		if data, err := os.ReadFile(originalPath); err == nil {
			r.con.Info("Chapter %d already downloaded", ch.Number)
			content = string(data)
		} else {
			r.con.Step("Downloading chapter %d: %s", ch.Number, ch.Title)
			content, err = r.scraper.DownloadChapter(ctx, ch.URL)
			if err != nil {
				return fmt.Errorf("download chapter %d: %w", ch.Number, err)
			}
			if err := writeFileAtomic(originalPath, []byte(content)); err != nil {
				return err
			}
			r.con.Success("Saved (%d chars)", len([]rune(content)))
		}

		downloaded = append(downloaded, chapterData{number: ch.Number, title: ch.Title, content: content})
	}

	if len(downloaded) == 0 {
		r.con.Warning("No chapters downloaded")
		return nil
	}

	scouted, err := r.scoutChapters(ctx, downloaded)
	if err != nil {
		return err
	}
	if scouted && !opts.SkipReview {
		if err := r.reviewNames(); err != nil {
			return err
		}
	}

	r.con.Section("Translation Phase")
	for _, ch := range downloaded {
		prefix := fmt.Sprintf("%0*d - ", padding, ch.number)
		exists, err := translationExists(storyDir, prefix)
		if err != nil {
			return err
		}
		if exists {
			r.con.Info("Chapter %d already translated, skipping", ch.number)
			continue
		}

		r.con.Step("Translating chapter %d: %s", ch.number, ch.title)

		mappedTitle := r.names.ApplyToText(ch.title)
		translatedTitle, err := r.trans.Translate(ctx, mappedTitle, true, nil)
		if err != nil {
			translatedTitle = ch.title + " [TRANSLATION_FAILED]"
		}

		mapped := r.names.ApplyToText(ch.content)
		translated, err := r.trans.Translate(ctx, mapped, false,
			&translator.Progress{Chapter: ch.number, Chunk: 1, TotalChunks: 1})
		if err != nil {
			return fmt.Errorf("translate chapter %d: %w", ch.number, err)
		}

		filename := fmt.Sprintf("%s%s.txt", prefix, sanitizeFilename(translatedTitle))
		if err := writeFileAtomic(filepath.Join(storyDir, filename), []byte(translated)); err != nil {
			return err
		}
		r.con.Success("Saved: %s", filename)
	}

	return nil
}

// translationExists reports whether a translated chapter file with the
// given number prefix is already present. The translated title is part
// of the filename, so only the prefix can be matched.
func translationExists(storyDir, prefix string) (bool, error) {
	entries, err := os.ReadDir(storyDir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return true, nil
		}
	}
	return false, nil
}

// scoutChapters runs the name scout over chapters not yet covered.
// It reports whether any scouting happened.
func (r *Runner) scoutChapters(ctx context.Context, chapters []chapterData) (bool, error) {
	r.con.Section("Name Scout Phase")

	var uncovered []chapterData
	for _, ch := range chapters {
		if !r.names.IsChapterCovered(ch.number) {
			uncovered = append(uncovered, ch)
		}
	}
	if len(uncovered) == 0 {
		r.con.Info("All chapters already scouted for names")
		return false, nil
	}

	r.con.Info("Scouting %d chapters for character names", len(uncovered))

	for _, ch := range uncovered {
		r.con.Step("Scouting chapter %d: %s", ch.number, ch.title)

		total := 0
		payload := scout.ChapterPayload(ch.number, ch.title, ch.content)
		for entries := range r.scout.CollectNames(ctx, payload) {
			total += len(entries)
			r.names.RecordVotes(entries)
			if err := r.names.Save(); err != nil {
				return false, err
			}
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		r.con.Info("Found %d names in chapter %d", total, ch.number)

		r.names.AddCoverage(ch.number)
		if err := r.names.Save(); err != nil {
			return false, err
		}
	}

	r.con.Success("Name mapping now has %d names", r.names.Len())
	return true, nil
}

// reviewNames opens the name mapping file in an editor and waits for
// the user. The file is reloaded until it parses cleanly, so a botched
// hand-edit never reaches the translation phase.
func (r *Runner) reviewNames() error {
	r.con.Section("Name Mapping Review")
	r.con.Info("Name mapping file: %s", r.names.Path())

	if !r.openEditor(r.names.Path()) {
		r.con.Info("Could not auto-detect editor. Please open the file manually: %s", r.names.Path())
	}

	reader := bufio.NewReader(r.stdin)
	for {
		r.con.Info("Review the name mappings and press Enter when done.")
		fmt.Print("> ")
		if _, err := reader.ReadString('\n'); err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		if err := r.names.ReloadFromDisk(); err != nil {
			r.con.Error("Failed to reload name mapping: %v", err)
			r.con.Info("Please fix the JSON and try again.")
			continue
		}
		r.con.Success("Name mapping reloaded successfully")
		return nil
	}
}

// openEditor launches the configured editor, or walks a per-platform
// candidate list. Returns false when nothing could be started.
func (r *Runner) openEditor(path string) bool {
	if r.editorCmd != "" {
		if err := exec.Command(r.editorCmd, path).Start(); err != nil {
			r.con.Warning("Failed to launch %s: %v", r.editorCmd, err)
			return false
		}
		r.con.Info("Opening in %s...", r.editorCmd)
		return true
	}

	var candidates []string
	switch runtime.GOOS {
	case "windows":
		candidates = []string{"notepad", "code", "notepad++"}
	case "darwin":
		candidates = []string{"open", "code", "vim", "nano"}
	default:
		candidates = []string{"kate", "gedit", "code", "vim", "nano", "emacs"}
	}

	for _, editor := range candidates {
		bin, err := exec.LookPath(editor)
		if err != nil {
			continue
		}
		if err := exec.Command(bin, path).Start(); err != nil {
			continue
		}
		r.con.Info("Opening in %s...", editor)
		return true
	}
	return false
}

// findOrCreateStoryDir locates the novel's story folder under the
// output directory, creating it with a translated title when this is
// the first run. Matching is by ID prefix so a later title retranslation
// never orphans an existing folder.
func (r *Runner) findOrCreateStoryDir(ctx context.Context) (string, error) {
	newPrefix := fmt.Sprintf("[%s: %s]", r.scraper.ID(), r.novel.NovelID)
	oldPrefix := fmt.Sprintf("[%s]", r.novel.NovelID)

	if entries, err := os.ReadDir(r.outputDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			name := e.Name()
			if strings.HasPrefix(name, newPrefix) || strings.HasPrefix(name, oldPrefix) {
				r.con.Info("Using existing folder: %s", name)
				return filepath.Join(r.outputDir, name), nil
			}
		}
	}

	r.con.Step("Translating title for folder name...")
	title, err := r.trans.Translate(ctx, r.novel.Title, true, nil)
	if err != nil || strings.TrimSpace(title) == "" {
		title = r.novel.Title
	}

	folderName := fmt.Sprintf("%s %s", newPrefix, sanitizeFilename(title))
	r.con.Success("Creating folder: %s", folderName)

	storyDir := filepath.Join(r.outputDir, folderName)
	if err := os.MkdirAll(storyDir, 0o755); err != nil {
		return "", err
	}
	return storyDir, nil
}

// validateChapterRange resolves the requested chapter range against
// the table of contents.
func validateChapterRange(start, end int, list *scraper.ChapterList) (int, int, error) {
	if list.OneShot {
		if start > 0 || end > 0 {
			return 0, 0, fmt.Errorf("cannot use a chapter range with one-shot stories")
		}
		return 1, 1, nil
	}

	total := len(list.Chapters)
	if start == 0 {
		start = 1
	}
	if end == 0 {
		end = total
	}

	if start > end {
		return 0, 0, fmt.Errorf("start chapter (%d) cannot be greater than end chapter (%d)", start, end)
	}
	if end > total {
		return 0, 0, fmt.Errorf("end chapter (%d) exceeds total chapters (%d)", end, total)
	}
	return start, end, nil
}

// sanitizeFilename replaces characters that are unsafe in filenames
// and strips trailing dots and spaces.
func sanitizeFilename(name string) string {
	sanitized := strings.Map(func(c rune) rune {
		switch c {
		case '\\', '/', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return c
		}
	}, name)
	return strings.TrimRight(sanitized, ". ")
}

// writeFileAtomic writes data through a temp file and rename so an
// interrupted run never leaves a partial chapter on disk.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".chapter-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// expandPath expands a leading ~/ to the user's home directory.
func expandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
