package namestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"honyaku/internal/namefilter"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "syosetu", "n1234ab")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return s
}

func entry(original, english string, part namefilter.Part) namefilter.Entry {
	return namefilter.Entry{Original: original, English: english, Part: part}
}

func TestRecordVotesElectsWinner(t *testing.T) {
	s := newTestStore(t)

	s.RecordVotes([]namefilter.Entry{
		entry("田中", "Tanaka", namefilter.Family),
		entry("田中", "Tanaka", namefilter.Family),
		entry("田中", "Tanacka", namefilter.Family),
	})

	info := s.Info("田中")
	if info == nil {
		t.Fatal("expected entry for 田中")
	}
	if info.English != "Tanaka" || info.Count != 2 {
		t.Errorf("winner = %q (%d), want Tanaka (2)", info.English, info.Count)
	}
	if info.Part != namefilter.Family {
		t.Errorf("part = %q, want family", info.Part)
	}
}

func TestRecordVotesSkipsInadmissible(t *testing.T) {
	s := newTestStore(t)

	s.RecordVotes([]namefilter.Entry{
		entry("田中さん", "Tanaka", namefilter.Family),
		entry("田中", "tanaka-san", namefilter.Family),
		entry("彼女", "She", namefilter.Unknown),
	})

	if s.Len() != 0 {
		t.Errorf("expected no entries recorded, have %d", s.Len())
	}
}

func TestTieKeepsCurrentWinner(t *testing.T) {
	s := newTestStore(t)

	s.RecordVotes([]namefilter.Entry{entry("優子", "Yuuko", namefilter.Given)})
	s.RecordVotes([]namefilter.Entry{entry("優子", "Yuko", namefilter.Given)})
	s.RecordVotes([]namefilter.Entry{entry("優子", "Yuuko", namefilter.Given)})
	s.RecordVotes([]namefilter.Entry{entry("優子", "Yuko", namefilter.Given)})

	// 2 vs 2: the first to lead stays on top.
	if info := s.Info("優子"); info.English != "Yuuko" {
		t.Errorf("tie displaced winner: got %q", info.English)
	}

	s.RecordVotes([]namefilter.Entry{entry("優子", "Yuko", namefilter.Given)})
	if info := s.Info("優子"); info.English != "Yuko" || info.Count != 3 {
		t.Errorf("strict majority should win: got %q (%d)", info.English, info.Count)
	}
}

func TestPartUpgradeIsMonotonic(t *testing.T) {
	s := newTestStore(t)

	s.RecordVotes([]namefilter.Entry{entry("太郎", "Taro", namefilter.Unknown)})
	s.RecordVotes([]namefilter.Entry{entry("太郎", "Taro", namefilter.Given)})
	if info := s.Info("太郎"); info.Part != namefilter.Given {
		t.Errorf("part should upgrade to given, got %q", info.Part)
	}

	// A later conflicting claim never downgrades or flips.
	s.RecordVotes([]namefilter.Entry{entry("太郎", "Taro", namefilter.Family)})
	if info := s.Info("太郎"); info.Part != namefilter.Given {
		t.Errorf("part flipped to %q after upgrade", info.Part)
	}
}

func TestPurgeBadVotes(t *testing.T) {
	s := newTestStore(t)

	s.data.Names["田中さん"] = &NameInfo{
		Part:  namefilter.Family,
		Votes: map[string]int{"Tanaka": 3},
	}
	s.data.Names["田中"] = &NameInfo{
		Part:    namefilter.Family,
		Votes:   map[string]int{"tanaka-san": 5, "Tanaka": 1},
		English: "tanaka-san",
		Count:   5,
	}

	s.PurgeBadVotes()

	if s.Info("田中さん") != nil {
		t.Error("honorific-suffixed original should be purged")
	}
	info := s.Info("田中")
	if info == nil {
		t.Fatal("valid original should survive the purge")
	}
	if info.English != "Tanaka" || info.Count != 1 {
		t.Errorf("winner after purge = %q (%d), want Tanaka (1)", info.English, info.Count)
	}
}

func TestCoverage(t *testing.T) {
	s := newTestStore(t)

	s.AddCoverage(3, 1, 2, 3)
	if !s.IsChapterCovered(2) {
		t.Error("chapter 2 should be covered")
	}
	if s.IsChapterCovered(4) {
		t.Error("chapter 4 should not be covered")
	}

	got := s.Coverage()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("coverage = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("coverage = %v, want %v", got, want)
		}
	}
}

func TestApplyToTextLongestFirst(t *testing.T) {
	s := newTestStore(t)
	s.RecordVotes([]namefilter.Entry{
		entry("田中太郎", "Tanakataro", namefilter.Unknown),
		entry("太郎", "Taro", namefilter.Given),
		entry("田中", "Tanaka", namefilter.Family),
	})

	got := s.ApplyToText("田中太郎と太郎")
	if got != "TanakataroとTaro" {
		t.Errorf("ApplyToText = %q, want %q", got, "TanakataroとTaro")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "syosetu", "n1234ab")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	s.RecordVotes([]namefilter.Entry{entry("田中", "Tanaka", namefilter.Family)})
	s.AddCoverage(1, 2)
	if err := s.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	reopened, err := Open(dir, "syosetu", "n1234ab")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Len() != 1 || !reopened.IsChapterCovered(2) {
		t.Errorf("state lost across reload: %d names, coverage %v",
			reopened.Len(), reopened.Coverage())
	}
	if info := reopened.Info("田中"); info == nil || info.English != "Tanaka" {
		t.Errorf("winner lost across reload: %+v", info)
	}
}

func TestSaveFileShape(t *testing.T) {
	s := newTestStore(t)
	s.RecordVotes([]namefilter.Entry{entry("田中", "Tanaka", namefilter.Family)})
	if err := s.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	content, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}
	if _, ok := doc["names"]; !ok {
		t.Error("saved file missing \"names\"")
	}
	if _, ok := doc["coverage"]; !ok {
		t.Error("saved file missing \"coverage\"")
	}
	if !strings.Contains(string(content), "\n  ") {
		t.Error("saved file should be pretty-printed for hand editing")
	}
}

func TestReloadPurgesHandEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "syosetu: n1234ab.json")
	raw := `{
	  "names": {
	    "田中": {"part": "family", "votes": {"Tanaka": 2}},
	    "彼女": {"part": "unknown", "votes": {"She": 9}}
	  },
	  "coverage": [1]
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(dir, "syosetu", "n1234ab")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if s.Info("彼女") != nil {
		t.Error("pronoun entry should be purged on load")
	}
	if info := s.Info("田中"); info == nil || info.English != "Tanaka" {
		t.Errorf("valid entry mangled on load: %+v", info)
	}
}

func TestReloadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "syosetu: n1234ab.json")

	cases := map[string]string{
		"not json":          `{"names": {`,
		"missing names":     `{"coverage": []}`,
		"votes not object":  `{"names": {"田中": {"part": "family", "votes": 3}}, "coverage": []}`,
		"negative coverage": `{"names": {}, "coverage": [-1]}`,
	}
	for name, raw := range cases {
		if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Open(dir, "syosetu", "n1234ab"); err == nil {
			t.Errorf("%s: expected a hard error, got none", name)
		}
	}
}
