package query

import "regexp/syntax"

// Op combines a Fragment's Children.
type Op int

const (
	OpAnd Op = iota
	OpOr
)

// Fragment is one node of a trigram query plan extracted from a regular
// expression, grounded on the teacher's query::planner::Fragment/Op (used
// by plan_to_query in server/bleep/src/query/compiler.rs). A plan is an
// AND/OR tree of literal substrings a match is required to contain; Break
// marks a part of the pattern with no literal requirement at all (a bare
// `.`, `.*`, a character class, an anchor), which the lexical layer must
// treat as "every document qualifies here" rather than as a filter.
type Fragment struct {
	Literal  string
	Op       Op
	Children []Fragment
	Break    bool
}

// PlanRegex extracts a Fragment plan from pattern, the same literal
// extraction the teacher's planner performs before compiler.rs turns the
// result into a tantivy BooleanQuery of trigram TermQuerys.
func PlanRegex(pattern string) (Fragment, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return Fragment{}, err
	}
	return planNode(re.Simplify()), nil
}

func planNode(re *syntax.Regexp) Fragment {
	switch re.Op {
	case syntax.OpLiteral:
		return Fragment{Literal: string(re.Rune)}
	case syntax.OpConcat:
		return planConcat(re.Sub)
	case syntax.OpCapture:
		if len(re.Sub) == 0 {
			return Fragment{Break: true}
		}
		return planNode(re.Sub[0])
	case syntax.OpPlus:
		// at least one copy is required, so its literal still applies
		if len(re.Sub) == 0 {
			return Fragment{Break: true}
		}
		return planNode(re.Sub[0])
	case syntax.OpAlternate:
		children := make([]Fragment, len(re.Sub))
		for i, sub := range re.Sub {
			children[i] = planNode(sub)
		}
		return Fragment{Op: OpOr, Children: children}
	default:
		// Star, Quest, AnyChar(NotNL), CharClass, anchors and the rest
		// carry no guaranteed literal.
		return Fragment{Break: true}
	}
}

func planConcat(subs []*syntax.Regexp) Fragment {
	var children []Fragment
	for _, sub := range subs {
		f := planNode(sub)
		if f.Break {
			continue
		}
		children = append(children, f)
	}
	switch len(children) {
	case 0:
		return Fragment{Break: true}
	case 1:
		return children[0]
	default:
		return Fragment{Op: OpAnd, Children: children}
	}
}

// Compiled is what the search layer actually executes: a semantic target
// (for the vector index) paired with the lexical/navigation filters and
// plan that narrow or replace it.
type Compiled struct {
	Flat
	IsSemantic bool

	// Plan is the trigram query plan for a regex content target, built by
	// PlanRegex; nil when the target isn't a regex or failed to parse.
	Plan *Fragment
}

// Compile turns a single Flat branch into a Compiled plan. A query targets
// the vector index whenever it carries free-text content with no regex
// flag set; a symbol: filter or an explicit regex: true routes to the
// lexical/navigation path instead, matching the teacher's Target::Symbol
// vs Target::Content split. A regex content target is additionally
// compiled into a trigram Fragment plan the lexical index uses to
// prefilter candidate documents before running the regex itself.
func Compile(f Flat) Compiled {
	c := Compiled{Flat: f, IsSemantic: f.Target.Content != "" && !f.GlobalRegex}
	if f.GlobalRegex && f.Target.Content != "" {
		if plan, err := PlanRegex(f.Target.Content); err == nil {
			c.Plan = &plan
		}
	}
	return c
}

// CompileAll parses, flattens and compiles a raw query string into its
// list of independent execution plans (one per OR branch).
func CompileAll(raw string) ([]Compiled, error) {
	node, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	flats := Flatten(node)
	out := make([]Compiled, len(flats))
	for i, f := range flats {
		out[i] = Compile(f)
	}
	return out, nil
}
