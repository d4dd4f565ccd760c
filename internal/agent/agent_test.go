package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jamaly87/codesearch/internal/llm"
	"github.com/jamaly87/codesearch/pkg/config"
)

type fakeTools struct {
	codeCalls int
	pathCalls int
	procCalls int
}

func (f *fakeTools) CodeSearch(ctx context.Context, query, repoName string, limit int) ([]SearchHit, error) {
	f.codeCalls++
	return []SearchHit{{Path: "greet.go", StartLine: 1, EndLine: 3, Snippet: "func Greet() {}", Lang: "go"}}, nil
}

func (f *fakeTools) PathSearch(ctx context.Context, query, repoName string, limit int) ([]string, error) {
	f.pathCalls++
	return []string{"greet.go"}, nil
}

func (f *fakeTools) Proc(ctx context.Context, query string, paths []string) ([]SearchHit, error) {
	f.procCalls++
	var hits []SearchHit
	for _, p := range paths {
		hits = append(hits, SearchHit{Path: p, StartLine: 1, EndLine: 10, Snippet: "package main"})
	}
	return hits, nil
}

// scriptedGateway returns replies in order, one per Complete call.
type scriptedGateway struct {
	replies []string
	calls   int
}

func (g *scriptedGateway) Complete(ctx context.Context, req llm.Request) (string, error) {
	r := g.replies[g.calls]
	g.calls++
	return r, nil
}

func (g *scriptedGateway) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	return nil, nil
}

func call(name, args string) string {
	encoded, _ := json.Marshal(llm.FunctionCall{Name: name, Arguments: args})
	return string(encoded)
}

func TestRunAnswersImmediatelyWhenModelPicksNone(t *testing.T) {
	tools := &fakeTools{}
	gw := &scriptedGateway{replies: []string{
		call("none", `{"paths":[]}`),
		"the answer is <GeneratedCode><Code>func Greet() {}</Code><Language>go</Language><Path>greet.go</Path><StartLine>1</StartLine><EndLine>1</EndLine></GeneratedCode>",
	}}
	loop := New(gw, tools, "myrepo", config.AgentConfig{MaxIterations: 5})

	ex, err := loop.Run(context.Background(), "how does Greet work", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tools.codeCalls != 1 {
		t.Errorf("expected exactly one seeded code search, got %d", tools.codeCalls)
	}
	if !strings.Contains(ex.Answer, "```type:Generated") {
		t.Errorf("expected answer to render the code fence, got %q", ex.Answer)
	}
	if len(ex.SearchSteps) != 1 {
		t.Fatalf("expected one seed search step, got %d", len(ex.SearchSteps))
	}
	if len(ex.Paths) != 1 || ex.Paths[0] != "greet.go" {
		t.Errorf("expected the seeded hit's path registered, got %+v", ex.Paths)
	}
	if len(ex.CodeChunks) != 1 || ex.CodeChunks[0].Alias != 0 {
		t.Errorf("expected one code chunk aliased to 0, got %+v", ex.CodeChunks)
	}
}

func TestRunFollowsPathThenAnswers(t *testing.T) {
	tools := &fakeTools{}
	gw := &scriptedGateway{replies: []string{
		call("path", `{"query":"greet"}`),
		call("none", `{"paths":[0]}`),
		"done",
	}}
	loop := New(gw, tools, "myrepo", config.AgentConfig{MaxIterations: 5})

	ex, err := loop.Run(context.Background(), "where is greet defined", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tools.pathCalls != 1 {
		t.Errorf("expected one path search, got %d", tools.pathCalls)
	}
	if ex.FocusedChunk == nil || ex.FocusedChunk.Alias != 0 {
		t.Errorf("expected a focused chunk on the single committed alias, got %+v", ex.FocusedChunk)
	}
}

func TestRunCallsProcWithResolvedPaths(t *testing.T) {
	tools := &fakeTools{}
	gw := &scriptedGateway{replies: []string{
		call("proc", `{"query":"what does this do","paths":[0]}`),
		call("none", `{"paths":[0]}`),
		"done",
	}}
	loop := New(gw, tools, "myrepo", config.AgentConfig{MaxIterations: 5})

	_, err := loop.Run(context.Background(), "explain greet.go", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tools.procCalls != 1 {
		t.Errorf("expected one proc call, got %d", tools.procCalls)
	}
}

func TestParseActionVariants(t *testing.T) {
	cases := []struct {
		raw  string
		kind ActionKind
	}{
		{call("code", `{"query":"http handler"}`), ActionCode},
		{call("path", `{"query":"main.go"}`), ActionPath},
		{call("proc", `{"query":"what does this do?","paths":[0,1]}`), ActionProc},
		{call("none", `{"paths":[]}`), ActionAnswer},
		{"not json at all", ActionAnswer},
	}
	for _, c := range cases {
		act, err := parseAction(c.raw)
		if err != nil {
			t.Fatalf("parseAction(%q): %v", c.raw, err)
		}
		if act.Kind != c.kind {
			t.Errorf("parseAction(%q) = %v, want %v", c.raw, act.Kind, c.kind)
		}
	}

	act, _ := parseAction(call("proc", `{"query":"summarize","paths":[0,1]}`))
	if len(act.Paths) != 2 || act.Paths[0] != 0 || act.Paths[1] != 1 {
		t.Errorf("unexpected proc paths: %v", act.Paths)
	}
}

func TestParseActionCapsProcPathsAtFive(t *testing.T) {
	act, _ := parseAction(call("proc", `{"query":"q","paths":[0,1,2,3,4,5,6]}`))
	if len(act.Paths) != 5 {
		t.Errorf("expected proc paths capped at 5, got %d", len(act.Paths))
	}
}

func TestLoopForcesAnswerAtStepBudget(t *testing.T) {
	tools := &fakeTools{}
	replies := []string{}
	for i := 0; i < 12; i++ {
		replies = append(replies, call("code", `{"query":"more"}`))
	}
	replies = append(replies, "final answer")
	gw := &scriptedGateway{replies: replies}
	loop := New(gw, tools, "myrepo", config.AgentConfig{MaxIterations: 20})

	ex, err := loop.Run(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ex.SearchSteps) > maxSteps {
		t.Errorf("expected the loop to stop at maxSteps search steps, got %d", len(ex.SearchSteps))
	}
}
