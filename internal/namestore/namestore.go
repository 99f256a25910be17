// Package namestore owns the persistent character-name glossary for one
// (module, work) pair. English renderings are chosen by vote: every
// extraction batch records candidate votes, and the highest-voted
// rendering wins, with ties keeping the previous winner so an
// established glossary does not flap between equally popular spellings.
//
// The backing JSON file is the single source of truth. It is written
// after every successful mutation and is expected to be hand-edited
// between the scouting and translation phases; loading always
// re-validates and re-purges, and a structurally invalid file is a hard
// error rather than a silent reset.
package namestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"honyaku/internal/namefilter"
)

// NameInfo holds the vote state for a single original-script name.
type NameInfo struct {
	// Part is refined monotonically: once family or given, never
	// downgraded back to unknown.
	Part namefilter.Part `json:"part"`

	// Votes maps English renderings to their vote counts.
	Votes map[string]int `json:"votes"`

	// English and Count mirror the winning entry of Votes. Omitted
	// from the file while no vote has been recorded.
	English string `json:"english,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// recalcBest recomputes the winner. Only a strictly greater count
// displaces the current winner; on a tie the previous winner stays.
func (ni *NameInfo) recalcBest() {
	if len(ni.Votes) == 0 {
		ni.English = ""
		ni.Count = 0
		return
	}

	best, bestCount := "", 0
	if count, ok := ni.Votes[ni.English]; ok {
		best, bestCount = ni.English, count
	}
	for english, count := range ni.Votes {
		if count > bestCount {
			best, bestCount = english, count
		}
	}
	if best == "" {
		// Previous winner was purged; adopt any surviving entry.
		for english, count := range ni.Votes {
			best, bestCount = english, count
			break
		}
	}
	ni.English, ni.Count = best, bestCount
}

// Data is the persisted document: exactly these two top-level keys.
type Data struct {
	Names    map[string]*NameInfo `json:"names"`
	Coverage []int                `json:"coverage"`
}

// Store is the glossary for one (module, work) pair. The in-memory
// state is a cache of the file; ReloadFromDisk discards unsaved state.
type Store struct {
	path string
	data Data
}

// Open creates or loads the store for the given module and work ID
// under namesDir. An existing file is validated, purged, and re-saved
// in normalized form; a structurally invalid file is returned as an
// error so hand edits are never silently destroyed.
func Open(namesDir, module, workID string) (*Store, error) {
	sep := ": "
	if runtime.GOOS == "windows" {
		sep = " - " // colons are reserved in filenames there
	}

	s := &Store{
		path: filepath.Join(namesDir, module+sep+workID+".json"),
		data: Data{Names: make(map[string]*NameInfo)},
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := s.ReloadFromDisk(); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat name mapping: %w", err)
	}

	return s, nil
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// RecordVotes records one vote per admissible entry. Inadmissible
// candidates are dropped silently; an unknown part value never rejects
// an entry, it is coerced to unknown.
func (s *Store) RecordVotes(entries []namefilter.Entry) {
	for _, e := range entries {
		if !namefilter.Admissible(e) {
			continue
		}
		part := e.Part
		if !namefilter.Known(part) {
			part = namefilter.Unknown
		}

		info, ok := s.data.Names[e.Original]
		if !ok {
			info = &NameInfo{Part: part, Votes: make(map[string]int)}
			s.data.Names[e.Original] = info
		}
		if info.Part == namefilter.Unknown && part != namefilter.Unknown {
			info.Part = part
		}

		info.Votes[e.English]++
		info.recalcBest()
	}
}

// PurgeBadVotes re-validates every persisted entry against the current
// admissibility rules. It runs on every load so that hand-edited files
// and rule changes cannot leave bad votes behind.
func (s *Store) PurgeBadVotes() {
	for original, info := range s.data.Names {
		if !namefilter.ValidOriginal(original) {
			delete(s.data.Names, original)
			continue
		}
		if !namefilter.Known(info.Part) {
			info.Part = namefilter.Unknown
		}
		for english := range info.Votes {
			if !namefilter.ValidEnglish(english) {
				delete(info.Votes, english)
			}
		}
		info.recalcBest()
		if len(info.Votes) == 0 {
			delete(s.data.Names, original)
		}
	}
}

// IsChapterCovered reports whether chapter n has already been scouted.
func (s *Store) IsChapterCovered(n int) bool {
	for _, c := range s.data.Coverage {
		if c == n {
			return true
		}
	}
	return false
}

// AddCoverage marks chapters as scouted. Duplicates collapse and the
// list is kept sorted so the file diffs cleanly.
func (s *Store) AddCoverage(chapters ...int) {
	seen := make(map[int]bool, len(s.data.Coverage))
	for _, c := range s.data.Coverage {
		seen[c] = true
	}
	for _, c := range chapters {
		if !seen[c] {
			s.data.Coverage = append(s.data.Coverage, c)
			seen[c] = true
		}
	}
	sort.Ints(s.data.Coverage)
}

// Coverage returns the sorted list of scouted chapter numbers.
func (s *Store) Coverage() []int {
	return s.data.Coverage
}

// Len returns the number of distinct original names.
func (s *Store) Len() int {
	return len(s.data.Names)
}

// Winners returns the original → winning-English mapping for all names
// that have a winner.
func (s *Store) Winners() map[string]string {
	winners := make(map[string]string, len(s.data.Names))
	for original, info := range s.data.Names {
		if info.English != "" {
			winners[original] = info.English
		}
	}
	return winners
}

// Info returns the vote state for one original name, or nil.
func (s *Store) Info(original string) *NameInfo {
	return s.data.Names[original]
}

// ApplyToText replaces every winning name in text with its English
// rendering. Longer originals are replaced first so a full name is
// never shadowed by a shorter substring of itself.
func (s *Store) ApplyToText(text string) string {
	type pair struct{ original, english string }

	pairs := make([]pair, 0, len(s.data.Names))
	for original, info := range s.data.Names {
		if info.English != "" {
			pairs = append(pairs, pair{original, info.English})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if len(pairs[i].original) != len(pairs[j].original) {
			return len(pairs[i].original) > len(pairs[j].original)
		}
		return pairs[i].original < pairs[j].original
	})

	for _, p := range pairs {
		text = strings.ReplaceAll(text, p.original, p.english)
	}
	return text
}

// Save writes the document as pretty-printed UTF-8 JSON. The write is
// atomic (temp file + rename) so a crash never leaves a truncated
// glossary behind.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create names directory: %w", err)
	}

	if s.data.Coverage == nil {
		s.data.Coverage = []int{}
	}
	content, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode name mapping: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".names-*.tmp")
	if err != nil {
		return fmt.Errorf("write name mapping: %w", err)
	}
	if _, err := tmp.Write(append(content, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write name mapping: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write name mapping: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace name mapping: %w", err)
	}
	return nil
}

// ReloadFromDisk replaces the in-memory state with the file contents,
// validating structure, purging bad votes, and re-saving the normalized
// result. Unsaved in-memory changes are discarded. A file that fails
// validation leaves the current state untouched and returns an error
// the caller must surface: the file may hold hand edits worth fixing.
func (s *Store) ReloadFromDisk() error {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read name mapping: %w", err)
	}

	var data Data
	if err := json.Unmarshal(content, &data); err != nil {
		return fmt.Errorf("parse name mapping %s: %w", s.path, err)
	}
	if data.Names == nil {
		return fmt.Errorf("invalid name mapping %s: missing \"names\" object", s.path)
	}
	for original, info := range data.Names {
		if info == nil || info.Votes == nil {
			return fmt.Errorf("invalid name mapping %s: entry %q has no votes object", s.path, original)
		}
	}
	for _, c := range data.Coverage {
		if c < 0 {
			return fmt.Errorf("invalid name mapping %s: negative chapter number %d in coverage", s.path, c)
		}
	}

	s.data = data
	s.PurgeBadVotes()
	return s.Save()
}
