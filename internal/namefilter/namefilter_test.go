package namefilter_test

import (
	"testing"

	"honyaku/internal/namefilter"
)

func TestParsePart(t *testing.T) {
	cases := map[string]namefilter.Part{
		"family":  namefilter.Family,
		"FAMILY":  namefilter.Family,
		"given":   namefilter.Given,
		" Given ": namefilter.Given,
		"unknown": namefilter.Unknown,
		"surname": namefilter.Unknown,
		"":        namefilter.Unknown,
	}
	for in, want := range cases {
		if got := namefilter.ParsePart(in); got != want {
			t.Errorf("ParsePart(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidOriginal(t *testing.T) {
	valid := []string{"田中", "太郎", "優子", "アリス"}
	for _, s := range valid {
		if !namefilter.ValidOriginal(s) {
			t.Errorf("%q should be a valid original", s)
		}
	}

	invalid := []string{
		"",
		"田中 太郎",  // whitespace
		"田中・太郎",  // separator
		"田中（たなか）", // brackets
		"田中さん",    // honorific suffix
		"太郎くん",
		"先生",   // itself an honorific ending
		"彼女",   // pronoun denylist
		"俺",
		"みんな",
	}
	for _, s := range invalid {
		if namefilter.ValidOriginal(s) {
			t.Errorf("%q should be rejected", s)
		}
	}
}

func TestValidEnglish(t *testing.T) {
	valid := []string{"Tanaka", "Taro", "Yuuko"}
	for _, s := range valid {
		if !namefilter.ValidEnglish(s) {
			t.Errorf("%q should be a valid english rendering", s)
		}
	}

	invalid := []string{
		"",
		"Tanaka Taro", // multi-word
		"tanaka-san",  // honorific
		"Taro-KUN",    // case-insensitive honorific
		"Mr. Tanaka",  // internal whitespace
	}
	for _, s := range invalid {
		if namefilter.ValidEnglish(s) {
			t.Errorf("%q should be rejected", s)
		}
	}
}

func TestAdmissible(t *testing.T) {
	ok := namefilter.Entry{Original: "田中", English: "Tanaka", Part: namefilter.Family}
	if !namefilter.Admissible(ok) {
		t.Error("plain family name should be admissible")
	}

	bad := []namefilter.Entry{
		{Original: "田中さん", English: "Tanaka", Part: namefilter.Given},
		{Original: "田中", English: "tanaka-san", Part: namefilter.Family},
		{Original: "", English: "Tanaka", Part: namefilter.Family},
		{Original: "田中", English: "", Part: namefilter.Family},
	}
	for _, e := range bad {
		if namefilter.Admissible(e) {
			t.Errorf("entry %+v should be rejected", e)
		}
	}
}
