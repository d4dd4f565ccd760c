// Package scopegraph builds a per-file graph of scopes, definitions,
// references and imports from a Tree-sitter parse tree. It generalizes the
// teacher's AST chunker, which only extracted function/class spans for
// embedding, into the structure code navigation needs: which identifier at
// a byte offset is a definition, a reference to one, or an import.
package scopegraph

import (
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/jamaly87/codesearch/internal/textrange"
)

// NodeKind classifies one entry of a Graph.
type NodeKind int

const (
	KindDef NodeKind = iota
	KindRef
	KindImport
)

func (k NodeKind) String() string {
	switch k {
	case KindDef:
		return "def"
	case KindRef:
		return "ref"
	case KindImport:
		return "import"
	default:
		return "unknown"
	}
}

// Node is one definition, reference or import occurrence in a file.
type Node struct {
	Kind  NodeKind
	Name  string
	Range textrange.Range

	// Symbol is a namespace label for Def nodes (e.g. "function", "var"),
	// taken from the grammar's def-kind table. A Ref only binds to a Def
	// whose Symbol is empty or equal to its own, mirroring the teacher's
	// symbol_id namespace check. Refs carry no Symbol of their own, since
	// plain identifier nodes give no namespace hint, so they bind to any
	// namespace (the (None, _) case of that check).
	Symbol string

	// Scope is the owning scope for a Def/Import, or the smallest scope
	// enclosing the occurrence for a Ref.
	Scope *Scope

	// RefTargets holds, for a KindRef node, the indices into Graph.Nodes
	// of every Def/Import it resolves to.
	RefTargets []int
}

// Scope is a lexical scope: a byte range plus the nodes declared directly
// within it. Scopes nest; ScopeOf resolves the innermost scope containing
// a byte offset.
type Scope struct {
	Range    textrange.Range
	Parent   *Scope
	Defs     []int // indices into Graph.Nodes
	Imports  []int // indices into Graph.Nodes
	Children []*Scope
}

// Graph is the scope graph for a single file.
type Graph struct {
	Language string
	Nodes    []Node
	Root     *Scope
}

// IsTopLevel reports whether n is a direct child of the file's root scope.
func (g *Graph) IsTopLevel(n Node) bool {
	return n.Scope != nil && n.Scope == g.Root
}

// Targets returns the Def/Import nodes a KindRef node at idx resolves to.
func (g *Graph) Targets(idx int) []Node {
	if idx < 0 || idx >= len(g.Nodes) {
		return nil
	}
	n := g.Nodes[idx]
	out := make([]Node, 0, len(n.RefTargets))
	for _, t := range n.RefTargets {
		out = append(out, g.Nodes[t])
	}
	return out
}

// RefsTargeting returns every KindRef node whose RefTargets includes idx,
// i.e. the local, in-file uses of the Def/Import at idx.
func (g *Graph) RefsTargeting(idx int) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind != KindRef {
			continue
		}
		for _, t := range n.RefTargets {
			if t == idx {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// IndexAt returns the index into Nodes of the innermost node whose range
// contains byteOffset, the same selection NodeAt makes.
func (g *Graph) IndexAt(byteOffset int) (int, bool) {
	best := -1
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !n.Range.ContainsPoint(byteOffset) {
			continue
		}
		if best == -1 || n.Range.Len() < g.Nodes[best].Range.Len() {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// Defs returns every KindDef node.
func (g *Graph) Defs() []Node {
	return g.filter(KindDef)
}

// Refs returns every KindRef node.
func (g *Graph) Refs() []Node {
	return g.filter(KindRef)
}

// Imports returns every KindImport node.
func (g *Graph) Imports() []Node {
	return g.filter(KindImport)
}

func (g *Graph) filter(k NodeKind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// NodeAt returns the innermost node whose range contains byteOffset,
// preferring defs and refs over the enclosing scope itself.
func (g *Graph) NodeAt(byteOffset int) (Node, bool) {
	idx, ok := g.IndexAt(byteOffset)
	if !ok {
		return Node{}, false
	}
	return g.Nodes[idx], true
}

// langSpec pairs a language's grammar table with its tree-sitter
// Language, mirroring the teacher's ASTChunker.initializeParsers.
type langSpec struct {
	lang    *sitter.Language
	grammar grammar
}

// grammar lists the node types treated as scope boundaries, definitions and
// imports for one language. These strings come straight from each
// Tree-sitter grammar, the same way the teacher's node-type constants do.
type grammar struct {
	scopeNodeTypes  map[string]bool
	defNodeTypes    map[string]string // node type -> def kind label, doubling as its namespace symbol
	importNodeTypes map[string]bool
	identifierTypes map[string]bool

	// scopingOf names the insertion mode for a def node type: "local"
	// (attach to its smallest enclosing scope), "hoist" (attach to that
	// scope's parent, falling back to the scope itself at the root), or
	// "global" (attach directly to the file's root scope). A type absent
	// from this map defaults to "local".
	scopingOf map[string]string
}

func (g grammar) scopingFor(nodeType string) string {
	if mode, ok := g.scopingOf[nodeType]; ok {
		return mode
	}
	return "local"
}

// Builder parses source files into scope graphs. Tree-sitter parsers are
// not thread-safe, so access is serialized the same way the teacher's
// ASTChunker protects its parser map.
type Builder struct {
	mu      sync.Mutex
	parsers map[string]*sitter.Parser
	specs   map[string]langSpec
}

// NewBuilder constructs a Builder with parsers for every language the
// indexer supports.
func NewBuilder() *Builder {
	b := &Builder{
		parsers: make(map[string]*sitter.Parser),
		specs:   make(map[string]langSpec),
	}
	b.register("go", golang.GetLanguage(), goGrammar())
	b.register("python", python.GetLanguage(), pythonGrammar())
	b.register("rust", rust.GetLanguage(), rustGrammar())
	b.register("c", c.GetLanguage(), cGrammar())
	b.register("cpp", cpp.GetLanguage(), cppGrammar())
	b.register("java", java.GetLanguage(), javaGrammar())
	b.register("javascript", javascript.GetLanguage(), jsGrammar())
	b.register("typescript", typescript.GetLanguage(), jsGrammar())
	return b
}

func (b *Builder) register(name string, lang *sitter.Language, g grammar) {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	b.parsers[name] = p
	b.specs[name] = langSpec{lang: lang, grammar: g}
}

// Supports reports whether language has a registered parser.
func (b *Builder) Supports(language string) bool {
	_, ok := b.parsers[language]
	return ok
}

// rawOccurrence is one candidate def/import/ref found while walking the
// parse tree, held until the scope tree is complete so later passes can
// resolve refs against every def regardless of source order.
type rawOccurrence struct {
	kind     NodeKind
	name     string
	symbol   string
	nodeType string // grammar node type, used to look up a def's scoping mode
	rng      textrange.Range
	scope    *Scope // smallest enclosing scope, independent of insertion mode
}

// Build parses content as language and returns its scope graph.
//
// The algorithm runs in four passes:
//  1. walk the tree depth-first, pushing a new Scope for every node type
//     the grammar marks as scope-introducing (functions, classes, blocks),
//     and collecting every def/import/ref candidate along with its
//     smallest enclosing scope;
//  2. insert Import nodes into their smallest enclosing scope;
//  3. insert Def nodes per their grammar's scoping mode: local defs attach
//     to the smallest enclosing scope, hoisted defs attach one scope up
//     (falling back to the enclosing scope at the root), global defs
//     attach directly to the root scope;
//  4. insert Ref nodes, walking from their smallest enclosing scope out to
//     the root and collecting every Def/Import in each scope with a
//     matching name and a namespace-compatible symbol. A Ref with no
//     candidates is dropped rather than left dangling.
func (b *Builder) Build(language, content string) (*Graph, error) {
	b.mu.Lock()
	parser, ok := b.parsers[language]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("scopegraph: no parser for language %q", language)
	}
	tree := parser.Parse(nil, []byte(content))
	b.mu.Unlock()

	if tree == nil {
		return nil, fmt.Errorf("scopegraph: failed to parse content")
	}
	root := tree.RootNode()
	if root == nil {
		return &Graph{Language: language}, nil
	}

	spec := b.specs[language]
	g := &Graph{Language: language}
	lineEnds := textrange.LineEndIndices(content)

	rootScope := &Scope{Range: nodeRange(root, lineEnds)}
	g.Root = rootScope

	var imports, defs, refs []rawOccurrence
	nameNodeRanges := make(map[[2]int]bool) // def-name identifier nodes, excluded from refs

	var walk func(n *sitter.Node, scope *Scope)
	walk = func(n *sitter.Node, scope *Scope) {
		if n == nil {
			return
		}
		nt := n.Type()

		cur := scope
		if spec.grammar.scopeNodeTypes[nt] {
			child := &Scope{Range: nodeRange(n, lineEnds), Parent: scope}
			scope.Children = append(scope.Children, child)
			cur = child
		}

		switch {
		case spec.grammar.importNodeTypes[nt]:
			imports = append(imports, rawOccurrence{
				kind: KindImport, name: importBoundName(n, content, spec.grammar.identifierTypes), rng: nodeRange(n, lineEnds), scope: scope,
			})
		case spec.grammar.defNodeTypes[nt] != "":
			// attach to the scope this node was found in, not a scope it
			// introduces itself: a function's own name belongs to its
			// enclosing scope, its body's contents belong to cur.
			symbol := spec.grammar.defNodeTypes[nt]
			if nameNode := childIdentifierNode(n, spec.grammar.identifierTypes); nameNode != nil {
				nameNodeRanges[[2]int{int(nameNode.StartByte()), int(nameNode.EndByte())}] = true
				defs = append(defs, rawOccurrence{
					kind: KindDef, name: nameNode.Content([]byte(content)), symbol: symbol, nodeType: nt,
					rng: nodeRange(n, lineEnds), scope: scope,
				})
			}
		case spec.grammar.identifierTypes[nt]:
			refs = append(refs, rawOccurrence{
				kind: KindRef, name: n.Content([]byte(content)), rng: nodeRange(n, lineEnds), scope: cur,
			})
		}

		childCount := int(n.ChildCount())
		for i := 0; i < childCount; i++ {
			walk(n.Child(i), cur)
		}
	}
	walk(root, rootScope)

	// drop ref candidates that are actually a def's own name identifier;
	// done as a post-pass since nameNodeRanges isn't complete until the
	// whole tree has been walked.
	filtered := refs[:0]
	for _, r := range refs {
		if !nameNodeRanges[[2]int{r.rng.Start.Byte, r.rng.End.Byte}] {
			filtered = append(filtered, r)
		}
	}
	refs = filtered

	for _, imp := range imports {
		idx := len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{Kind: KindImport, Name: imp.name, Range: imp.rng, Scope: imp.scope})
		imp.scope.Imports = append(imp.scope.Imports, idx)
	}

	for _, def := range defs {
		target := def.scope
		switch spec.grammar.scopingFor(def.nodeType) {
		case "hoist":
			if def.scope.Parent != nil {
				target = def.scope.Parent
			}
		case "global":
			target = rootScope
		}
		idx := len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{Kind: KindDef, Name: def.name, Symbol: def.symbol, Range: def.rng, Scope: target})
		target.Defs = append(target.Defs, idx)
	}

	for _, ref := range refs {
		var targets []int
		for s := ref.scope; s != nil; s = s.Parent {
			for _, di := range s.Defs {
				d := g.Nodes[di]
				if d.Name == ref.name && namespaceCompatible(d.Symbol, ref.symbol) {
					targets = append(targets, di)
				}
			}
			for _, ii := range s.Imports {
				imp := g.Nodes[ii]
				if imp.Name == ref.name {
					targets = append(targets, ii)
				}
			}
		}
		if len(targets) == 0 {
			continue
		}
		g.Nodes = append(g.Nodes, Node{
			Kind: KindRef, Name: ref.name, Range: ref.rng, Scope: ref.scope, RefTargets: targets,
		})
	}

	return g, nil
}

// namespaceCompatible mirrors the teacher's symbol_id comparison: a def and
// ref are incompatible only when both carry a namespace symbol and they
// differ. An empty symbol (refs never carry one here) matches any def.
func namespaceCompatible(defSymbol, refSymbol string) bool {
	if defSymbol == "" || refSymbol == "" {
		return true
	}
	return defSymbol == refSymbol
}

func nodeRange(n *sitter.Node, lineEnds []int) textrange.Range {
	return textrange.Range{
		Start: textrange.PointAt(int(n.StartByte()), lineEnds),
		End:   textrange.PointAt(int(n.EndByte()), lineEnds),
	}
}

// importBoundName extracts the identifier a ref would actually use to
// reach this import: the last identifier-typed descendant (an import
// alias, or the last named/default import symbol), falling back to the
// last path segment of the import's quoted string for bare, unaliased
// imports like Go's `import "fmt"`, where there is no identifier node at
// all and "fmt" is the name callers write at use sites.
func importBoundName(n *sitter.Node, content string, idTypes map[string]bool) string {
	var lastIdent string
	var walk func(*sitter.Node)
	walk = func(nd *sitter.Node) {
		if nd == nil {
			return
		}
		if idTypes[nd.Type()] {
			lastIdent = nd.Content([]byte(content))
		}
		cc := int(nd.ChildCount())
		for i := 0; i < cc; i++ {
			walk(nd.Child(i))
		}
	}
	walk(n)
	if lastIdent != "" {
		return lastIdent
	}
	text := strings.Trim(n.Content([]byte(content)), `"'`)
	if i := strings.LastIndexByte(text, '/'); i >= 0 {
		text = text[i+1:]
	}
	return text
}

// childIdentifierNode finds the first identifier-typed descendant of n,
// searching direct children first (most grammars place the name there)
// before falling back to a shallow recursive search.
func childIdentifierNode(n *sitter.Node, idTypes map[string]bool) *sitter.Node {
	if n == nil {
		return nil
	}
	childCount := int(n.ChildCount())
	for i := 0; i < childCount; i++ {
		child := n.Child(i)
		if child != nil && idTypes[child.Type()] {
			return child
		}
	}
	for i := 0; i < childCount; i++ {
		if found := childIdentifierNode(n.Child(i), idTypes); found != nil {
			return found
		}
	}
	return nil
}
