// Package navigate answers "what is at this byte, and where else does it
// occur" queries over a repository's scope graphs. It plays the role of
// bloop's code_navigation.rs, generalized from a single scope graph to a
// whole-repository index so jumping from a reference in one file can land
// on a definition in another.
package navigate

import (
	"sort"

	"github.com/jamaly87/codesearch/internal/scopegraph"
)

// FileGraph pairs a file's scope graph with its repository-relative path.
type FileGraph struct {
	Path  string
	Graph *scopegraph.Graph
}

// Occurrence is one occurrence of a symbol, named and positioned within a
// specific file.
type Occurrence struct {
	Path string
	Node scopegraph.Node
}

// Index resolves navigation queries across every indexed file of a repo.
type Index struct {
	files []FileGraph

	// topLevelDefs indexes only defs attached directly to their file's
	// root scope, since a bare name lookup across the whole repo should
	// only ever land on a symbol visible outside its own file.
	topLevelDefs map[string][]Occurrence
}

// NewIndex builds a navigation Index from one scope graph per file.
func NewIndex(files []FileGraph) *Index {
	ix := &Index{files: files, topLevelDefs: make(map[string][]Occurrence)}
	for _, f := range files {
		if f.Graph == nil {
			continue
		}
		for _, def := range f.Graph.Defs() {
			if f.Graph.IsTopLevel(def) {
				ix.topLevelDefs[def.Name] = append(ix.topLevelDefs[def.Name], Occurrence{Path: f.Path, Node: def})
			}
		}
	}
	return ix
}

// At resolves the node under byteOffset in the file at path, if indexed.
func (ix *Index) At(path string, byteOffset int) (Occurrence, bool) {
	f, idx, ok := ix.nodeAt(path, byteOffset)
	if !ok {
		return Occurrence{}, false
	}
	return Occurrence{Path: path, Node: f.Graph.Nodes[idx]}, true
}

func (ix *Index) nodeAt(path string, byteOffset int) (FileGraph, int, bool) {
	for _, f := range ix.files {
		if f.Path != path || f.Graph == nil {
			continue
		}
		idx, ok := f.Graph.IndexAt(byteOffset)
		if !ok {
			return FileGraph{}, 0, false
		}
		return f, idx, true
	}
	return FileGraph{}, 0, false
}

// Definitions returns every top-level def occurrence named name, across
// all files — a repo-wide symbol lookup restricted to symbols visible
// outside their own file, the same restriction the teacher's generalized
// scope graph places on a name-only (not cursor-based) search.
func (ix *Index) Definitions(name string) []Occurrence {
	return ix.topLevelDefs[name]
}

// References returns every ref occurrence named name, across all files —
// the repo-wide "find usages" view built on top of each file's local refs.
func (ix *Index) References(name string) []Occurrence {
	var out []Occurrence
	for _, f := range ix.files {
		if f.Graph == nil {
			continue
		}
		for _, ref := range f.Graph.Refs() {
			if ref.Name == name {
				out = append(out, Occurrence{Path: f.Path, Node: ref})
			}
		}
	}
	return out
}

// GoToDefinition resolves the occurrence at path:byteOffset to its
// definition(s). If the occurrence under the cursor is itself a def, it
// is returned as the sole result; otherwise Occurrences is run and its
// def results are returned (imports are not included).
func (ix *Index) GoToDefinition(path string, byteOffset int) []Occurrence {
	f, idx, ok := ix.nodeAt(path, byteOffset)
	if !ok {
		return nil
	}
	node := f.Graph.Nodes[idx]
	if node.Kind == scopegraph.KindDef {
		return []Occurrence{{Path: path, Node: node}}
	}
	var out []Occurrence
	for _, occ := range ix.Occurrences(path, byteOffset) {
		if occ.Node.Kind == scopegraph.KindDef {
			out = append(out, occ)
		}
	}
	return out
}

// Occurrences implements the tightest-covering-node navigation algorithm:
// locate the node at path:byteOffset, then dispatch by its kind.
//
//   - Definition: every local ref resolving to it (found by walking the
//     file's own scope graph), plus, if the def is top-level, every
//     repo-wide ref with the same name (a def's own graph can't see uses
//     from another file's graph, so cross-file fan-out goes by name).
//   - Reference: every local def/import it resolves to, plus every other
//     local ref sharing one of those targets, plus — if it resolved to no
//     local def at all — a repo-wide, top-level-only name search.
//   - Import: a repo-wide, top-level-only name search for what it
//     imports, plus every local ref resolving to the import itself.
//
// Results are grouped by file (the cursor's own file first), sorted by
// start byte within each file, and deduplicated by (path, range).
func (ix *Index) Occurrences(path string, byteOffset int) []Occurrence {
	f, idx, ok := ix.nodeAt(path, byteOffset)
	if !ok {
		return nil
	}
	node := f.Graph.Nodes[idx]

	var out []Occurrence
	switch node.Kind {
	case scopegraph.KindDef:
		out = append(out, occurrencesOf(path, f.Graph.RefsTargeting(idx))...)
		if f.Graph.IsTopLevel(node) {
			out = append(out, ix.repoWideRefs(node.Name, path)...)
		}

	case scopegraph.KindRef:
		targets := f.Graph.Targets(idx)
		var sawLocalDef bool
		for _, t := range targets {
			out = append(out, Occurrence{Path: path, Node: t})
			if t.Kind == scopegraph.KindDef {
				sawLocalDef = true
			}
		}
		for _, target := range node.RefTargets {
			out = append(out, occurrencesOf(path, f.Graph.RefsTargeting(target))...)
		}
		if !sawLocalDef {
			out = append(out, ix.Definitions(node.Name)...)
		}

	case scopegraph.KindImport:
		out = append(out, ix.Definitions(node.Name)...)
		out = append(out, occurrencesOf(path, f.Graph.RefsTargeting(idx))...)
	}

	return dedupeAndSort(path, out)
}

// repoWideRefs returns refs named name in every file, ordered with
// ownPath's matches first.
func (ix *Index) repoWideRefs(name, ownPath string) []Occurrence {
	var own, other []Occurrence
	for _, f := range ix.files {
		if f.Graph == nil {
			continue
		}
		for _, ref := range f.Graph.Refs() {
			if ref.Name != name {
				continue
			}
			occ := Occurrence{Path: f.Path, Node: ref}
			if f.Path == ownPath {
				own = append(own, occ)
			} else {
				other = append(other, occ)
			}
		}
	}
	return append(own, other...)
}

func occurrencesOf(path string, nodes []scopegraph.Node) []Occurrence {
	out := make([]Occurrence, len(nodes))
	for i, n := range nodes {
		out[i] = Occurrence{Path: path, Node: n}
	}
	return out
}

func dedupeAndSort(ownPath string, occs []Occurrence) []Occurrence {
	type key struct {
		path       string
		start, end int
	}
	seen := make(map[key]bool, len(occs))
	out := occs[:0]
	for _, occ := range occs {
		k := key{occ.Path, occ.Node.Range.Start.Byte, occ.Node.Range.End.Byte}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, occ)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			if out[i].Path == ownPath || out[j].Path == ownPath {
				return out[i].Path == ownPath
			}
			return out[i].Path < out[j].Path
		}
		return out[i].Node.Range.Start.Byte < out[j].Node.Range.Start.Byte
	})
	return out
}
