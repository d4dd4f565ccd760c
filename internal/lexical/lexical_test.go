package lexical

import (
	"testing"

	"github.com/jamaly87/codesearch/internal/models"
)

func doc(repo, path, content string) models.ContentDocument {
	return models.ContentDocument{RepoName: repo, RelativePath: path, Content: content}
}

func TestGetExactPath(t *testing.T) {
	ix := New()
	ix.Add(doc("acme", "main.go", "package main\n"))
	d, ok := ix.Get("main.go")
	if !ok || d.RepoName != "acme" {
		t.Fatalf("expected to find main.go, got %+v ok=%v", d, ok)
	}
	if _, ok := ix.Get("missing.go"); ok {
		t.Errorf("did not expect missing.go to be found")
	}
}

func TestFuzzyPath(t *testing.T) {
	ix := New()
	ix.Add(doc("acme", "internal/server/handler.go", "package server"))
	ix.Add(doc("acme", "internal/client/handler.go", "package client"))
	matches := ix.FuzzyPath("server/handler", 5)
	if len(matches) == 0 {
		t.Fatalf("expected at least one fuzzy match")
	}
	if matches[0].Doc.RelativePath != "internal/server/handler.go" {
		t.Errorf("expected server/handler.go to rank first, got %s", matches[0].Doc.RelativePath)
	}
}

func TestFindLiteral(t *testing.T) {
	ix := New()
	ix.Add(doc("acme", "a.go", "func Greet() string {\n\treturn \"hello\"\n}\n"))
	ix.Add(doc("acme", "b.go", "func Other() int {\n\treturn 1\n}\n"))

	matches := ix.FindLiteral("hello", true)
	if len(matches) != 1 || matches[0].Doc.RelativePath != "a.go" {
		t.Fatalf("expected one match in a.go, got %+v", matches)
	}

	matches = ix.FindLiteral("HELLO", false)
	if len(matches) != 1 {
		t.Fatalf("expected case-insensitive match, got %+v", matches)
	}
}

func TestListFiltersByRepo(t *testing.T) {
	ix := New()
	ix.Add(doc("acme", "a.go", "package a"))
	ix.Add(doc("other", "b.go", "package b"))
	out := ix.List("acme", 0)
	if len(out) != 1 || out[0].RelativePath != "a.go" {
		t.Fatalf("expected only acme's doc, got %+v", out)
	}
}

// TestTrigramsShortStringFallback checks that a string shorter than three
// runes yields itself as a single fragment instead of nothing.
func TestTrigramsShortStringFallback(t *testing.T) {
	if got := trigrams(""); got != nil {
		t.Errorf("expected no trigrams for an empty string, got %+v", got)
	}
	if got := trigrams("a"); len(got) != 1 || got[0].text != "a" {
		t.Errorf("expected a single fragment %q, got %+v", "a", got)
	}
	if got := trigrams("ab"); len(got) != 1 || got[0].text != "ab" {
		t.Errorf("expected a single fragment %q, got %+v", "ab", got)
	}
	if got := trigrams("abcde"); len(got) != 3 || got[0].text != "abc" || got[1].text != "bcd" || got[2].text != "cde" {
		t.Errorf("expected a sliding window of 3, got %+v", got)
	}
}

func TestCasePermutations(t *testing.T) {
	got := casePermutations("abc")
	if len(got) != 8 {
		t.Fatalf("expected 8 permutations of a 3-letter string, got %d: %v", len(got), got)
	}
	want := map[string]bool{"abc": true, "Abc": true, "aBc": true, "ABc": true, "abC": true, "AbC": true, "aBC": true, "ABC": true}
	for _, g := range got {
		if !want[g] {
			t.Errorf("unexpected permutation %q", g)
		}
	}
}

func TestSearchRegexLiteral(t *testing.T) {
	ix := New()
	ix.Add(doc("acme", "a.go", "func Greet() string {\n\treturn \"hello world\"\n}\n"))
	ix.Add(doc("acme", "b.go", "func Other() int {\n\treturn 1\n}\n"))

	matches, err := ix.SearchRegex("hello", true)
	if err != nil {
		t.Fatalf("SearchRegex: %v", err)
	}
	if len(matches) != 1 || matches[0].Doc.RelativePath != "a.go" {
		t.Fatalf("expected one match in a.go, got %+v", matches)
	}
}

func TestSearchRegexCaseInsensitive(t *testing.T) {
	ix := New()
	ix.Add(doc("acme", "a.go", "func Greet() string { return \"HELLO\" }\n"))

	matches, err := ix.SearchRegex("hello", false)
	if err != nil {
		t.Fatalf("SearchRegex: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected a case-insensitive regex match, got %+v", matches)
	}
}

func TestSearchRegexAlternation(t *testing.T) {
	ix := New()
	ix.Add(doc("acme", "a.go", "func Greet() string { return \"hello\" }\n"))
	ix.Add(doc("acme", "b.go", "func Other() int { return 1 }\n"))
	ix.Add(doc("acme", "c.go", "func Unrelated() bool { return true }\n"))

	matches, err := ix.SearchRegex("hello|Other", true)
	if err != nil {
		t.Fatalf("SearchRegex: %v", err)
	}
	var sawA, sawB, sawC bool
	for _, m := range matches {
		switch m.Doc.RelativePath {
		case "a.go":
			sawA = true
		case "b.go":
			sawB = true
		case "c.go":
			sawC = true
		}
	}
	if !sawA || !sawB {
		t.Fatalf("expected matches in both alternation branches, got %+v", matches)
	}
	if sawC {
		t.Fatalf("did not expect a match in c.go, got %+v", matches)
	}
}
