package navigate

import (
	"testing"

	"github.com/jamaly87/codesearch/internal/scopegraph"
)

func build(t *testing.T, lang, content string) *scopegraph.Graph {
	t.Helper()
	b := scopegraph.NewBuilder()
	g, err := b.Build(lang, content)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

// byteOfName returns the byte offset of the first occurrence of name in
// content, for locating a test fixture's node under the cursor.
func byteOfName(content, name string) int {
	for i := 0; i+len(name) <= len(content); i++ {
		if content[i:i+len(name)] == name {
			return i
		}
	}
	return -1
}

func TestRepoWideDefinitionsAndReferences(t *testing.T) {
	// Two independent files, each defining and calling its own Helper —
	// a single-file ScopeGraph can't link a bare call across files
	// without a shared import, so repo-wide aggregation is tested over
	// per-file self-contained defs/refs rather than a cross-file call.
	aContent := "package a\n\nfunc Helper() int {\n\treturn 1\n}\n\nfunc useA() int {\n\treturn Helper()\n}\n"
	cContent := "package c\n\nfunc Helper() int {\n\treturn 2\n}\n\nfunc useC() int {\n\treturn Helper()\n}\n"

	ix := NewIndex([]FileGraph{
		{Path: "a.go", Graph: build(t, "go", aContent)},
		{Path: "c.go", Graph: build(t, "go", cContent)},
	})

	defs := ix.Definitions("Helper")
	if len(defs) != 2 {
		t.Fatalf("expected 2 top-level Helper defs across files, got %d: %+v", len(defs), defs)
	}

	refs := ix.References("Helper")
	var sawA, sawC bool
	for _, r := range refs {
		if r.Path == "a.go" {
			sawA = true
		}
		if r.Path == "c.go" {
			sawC = true
		}
	}
	if !sawA || !sawC {
		t.Errorf("expected a Helper reference in both files, got %+v", refs)
	}
}

func TestGoToDefinitionLocalRef(t *testing.T) {
	content := "package main\n\nfunc double(n int) int {\n\treturn n * 2\n}\n\nfunc main() {\n\tdouble(21)\n}\n"
	g := build(t, "go", content)
	ix := NewIndex([]FileGraph{{Path: "main.go", Graph: g}})

	callOffset := byteOfName(content, "double(21)")
	if callOffset < 0 {
		t.Fatalf("fixture missing call site")
	}
	defs := ix.GoToDefinition("main.go", callOffset)
	if len(defs) != 1 || defs[0].Node.Name != "double" {
		t.Fatalf("expected GoToDefinition at the call site to resolve to double, got %+v", defs)
	}
}

func TestOccurrencesFromDefinitionFindsLocalRefs(t *testing.T) {
	content := "package main\n\nfunc double(n int) int {\n\treturn n * 2\n}\n\nfunc main() {\n\tdouble(21)\n}\n"
	g := build(t, "go", content)
	ix := NewIndex([]FileGraph{{Path: "main.go", Graph: g}})

	defOffset := byteOfName(content, "double(n int)")
	occs := ix.Occurrences("main.go", defOffset)
	var sawCall bool
	for _, o := range occs {
		if o.Node.Kind == scopegraph.KindRef && o.Node.Name == "double" {
			sawCall = true
		}
	}
	if !sawCall {
		t.Errorf("expected Occurrences on the def to include the call site, got %+v", occs)
	}
}

func TestOccurrencesFromRefFindsLocalDef(t *testing.T) {
	content := "package main\n\nfunc double(n int) int {\n\treturn n * 2\n}\n\nfunc main() {\n\tdouble(21)\n}\n"
	g := build(t, "go", content)
	ix := NewIndex([]FileGraph{{Path: "main.go", Graph: g}})

	callOffset := byteOfName(content, "double(21)")
	occs := ix.Occurrences("main.go", callOffset)
	var sawDef bool
	for _, o := range occs {
		if o.Node.Kind == scopegraph.KindDef && o.Node.Name == "double" {
			sawDef = true
		}
	}
	if !sawDef {
		t.Errorf("expected Occurrences on the ref to include its def, got %+v", occs)
	}
}

func TestAtFailsForUnindexedPath(t *testing.T) {
	g := build(t, "go", "package main\n\nfunc main() {}\n")
	ix := NewIndex([]FileGraph{{Path: "main.go", Graph: g}})
	if _, ok := ix.At("missing.go", 0); ok {
		t.Errorf("expected At to fail for an unindexed path")
	}
}
