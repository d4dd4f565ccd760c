package query

import "testing"

func TestParseSimpleContent(t *testing.T) {
	n, err := Parse("ParseError")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	flats := Flatten(n)
	if len(flats) != 1 || flats[0].Target.Content != "ParseError" {
		t.Fatalf("unexpected flats: %+v", flats)
	}
}

func TestParseFieldFilter(t *testing.T) {
	n, err := Parse("repo:widgets lang:go Handler")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	flats := Flatten(n)
	if len(flats) != 1 {
		t.Fatalf("expected one flat query, got %d", len(flats))
	}
	f := flats[0]
	if len(f.Repos) != 1 || f.Repos[0] != "widgets" {
		t.Errorf("expected repo filter widgets, got %+v", f.Repos)
	}
	if len(f.Langs) != 1 || f.Langs[0] != "go" {
		t.Errorf("expected lang filter go, got %+v", f.Langs)
	}
	if f.Target.Content != "Handler" {
		t.Errorf("expected content target Handler, got %q", f.Target.Content)
	}
}

func TestFlattenCrossProduct(t *testing.T) {
	n, err := Parse("(repo:a or repo:b) (org:x or lang:go)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	flats := Flatten(n)
	if len(flats) != 4 {
		t.Fatalf("expected 4 flattened branches, got %d: %+v", len(flats), flats)
	}
}

func TestCompileRoutesSymbolAway(t *testing.T) {
	plans, err := CompileAll("symbol:Greet")
	if err != nil {
		t.Fatalf("CompileAll: %v", err)
	}
	if len(plans) != 1 || plans[0].IsSemantic {
		t.Fatalf("expected symbol query to not be semantic: %+v", plans)
	}
}

func TestCompileRoutesContentToSemantic(t *testing.T) {
	plans, err := CompileAll("how does retry backoff work")
	if err != nil {
		t.Fatalf("CompileAll: %v", err)
	}
	if len(plans) != 1 || !plans[0].IsSemantic {
		t.Fatalf("expected free text query to be semantic: %+v", plans)
	}
}

func TestParseUnbalancedParens(t *testing.T) {
	if _, err := Parse("(repo:a"); err == nil {
		t.Errorf("expected error for unbalanced parens")
	}
}

func TestCompileRegexBuildsPlan(t *testing.T) {
	plans, err := CompileAll("regex:true hello")
	if err != nil {
		t.Fatalf("CompileAll: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected one plan, got %d", len(plans))
	}
	p := plans[0]
	if p.IsSemantic {
		t.Errorf("expected a regex target to not be semantic")
	}
	if p.Plan == nil {
		t.Fatalf("expected a trigram plan for a regex target")
	}
	if p.Plan.Literal != "hello" {
		t.Errorf("expected plan literal %q, got %+v", "hello", p.Plan)
	}
}

func TestPlanRegexAlternation(t *testing.T) {
	f, err := PlanRegex("foo|bar")
	if err != nil {
		t.Fatalf("PlanRegex: %v", err)
	}
	if f.Op != OpOr || len(f.Children) != 2 {
		t.Fatalf("expected a 2-way Or plan, got %+v", f)
	}
}

func TestPlanRegexConcatDropsBreaks(t *testing.T) {
	f, err := PlanRegex("foo.*bar")
	if err != nil {
		t.Fatalf("PlanRegex: %v", err)
	}
	if f.Op != OpAnd || len(f.Children) != 2 {
		t.Fatalf("expected an And plan of the two literals either side of .*, got %+v", f)
	}
	if f.Children[0].Literal != "foo" || f.Children[1].Literal != "bar" {
		t.Errorf("expected literals foo/bar, got %+v", f.Children)
	}
}

func TestPlanRegexNoLiteralBreaksWhole(t *testing.T) {
	f, err := PlanRegex(".*")
	if err != nil {
		t.Fatalf("PlanRegex: %v", err)
	}
	if !f.Break {
		t.Errorf("expected a pattern with no literal to produce a Break plan, got %+v", f)
	}
}
