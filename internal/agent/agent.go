// Package agent implements the Think -> Act -> Observe loop that drives a
// single question through the search tools down to an answer. The loop
// shape and step budget are grounded on bloop's agent.rs Agent::step
// (Action enum dispatch, MAX_STEPS forcing a final answer), generalized
// from its code/path/proc/answer tool modules into the Tools this module's
// search stack exposes, and from vanducng-goclaw's Loop (iteration budget,
// message accumulation) for the surrounding harness.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jamaly87/codesearch/internal/exchange"
	"github.com/jamaly87/codesearch/internal/llm"
	"github.com/jamaly87/codesearch/pkg/config"
)

// Tools is the set of search operations the agent loop can call. It is
// satisfied by a thin adapter over internal/vector and internal/lexical
// (SearchTools) so the loop itself stays free of index wiring.
type Tools interface {
	CodeSearch(ctx context.Context, query, repoName string, limit int) ([]SearchHit, error)
	PathSearch(ctx context.Context, query, repoName string, limit int) ([]string, error)
	Proc(ctx context.Context, query string, paths []string) ([]SearchHit, error)
}

// ActionKind names one step the agent can choose to take.
type ActionKind string

const (
	ActionQuery  ActionKind = "query" // initial user question, forces a code search
	ActionCode   ActionKind = "code"
	ActionPath   ActionKind = "path"
	ActionProc   ActionKind = "proc"
	ActionAnswer ActionKind = "answer" // wire name "none": commits an Answer action
)

// Action is the parsed decision of one LLM turn. Paths carries integer
// aliases into the owning Exchange's path table, never full paths — the
// wire schema's proc/none functions both take `paths: int[]`.
type Action struct {
	Kind  ActionKind
	Query string
	Paths []int
}

// maxSteps bounds how many search actions the loop executes before it
// is forced to produce a final answer, matching bloop's MAX_STEPS.
const maxSteps = 10

// Loop drives one Exchange to completion.
type Loop struct {
	gateway  llm.Gateway
	tools    Tools
	repoName string
	cfg      config.AgentConfig
}

// New builds a Loop over gateway and tools, scoped to repoName.
func New(gateway llm.Gateway, tools Tools, repoName string, cfg config.AgentConfig) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = maxSteps
	}
	return &Loop{gateway: gateway, tools: tools, repoName: repoName, cfg: cfg}
}

// Run answers query, recording every intermediate step onto the returned
// Exchange's Updates so the caller can stream progress or replay history.
func (l *Loop) Run(ctx context.Context, query string, history []exchange.Exchange) (*exchange.Exchange, error) {
	ex := &exchange.Exchange{Query: query, QueryTS: time.Now()}

	action := Action{Kind: ActionQuery, Query: query}

	// The first turn always runs a code search, the way bloop seeds its
	// very first exchange before asking the model what to do next.
	if err := l.dispatch(ctx, ex, action); err != nil {
		return nil, err
	}

	for step := 0; step < l.cfg.MaxIterations; step++ {
		if len(ex.SearchSteps) >= maxSteps {
			action = Action{Kind: ActionAnswer, Paths: allAliases(ex)}
		} else {
			next, err := l.decide(ctx, ex, history)
			if err != nil {
				return nil, fmt.Errorf("agent: decide step %d: %w", step, err)
			}
			action = next
		}

		if action.Kind == ActionAnswer {
			return l.answer(ctx, ex, history, action.Paths)
		}
		if err := l.dispatch(ctx, ex, action); err != nil {
			return nil, err
		}
	}

	return l.answer(ctx, ex, history, allAliases(ex))
}

func allAliases(ex *exchange.Exchange) []int {
	aliases := make([]int, len(ex.Paths))
	for i := range ex.Paths {
		aliases[i] = i
	}
	return aliases
}

func (l *Loop) dispatch(ctx context.Context, ex *exchange.Exchange, action Action) error {
	switch action.Kind {
	case ActionQuery, ActionCode:
		hits, err := l.tools.CodeSearch(ctx, action.Query, l.repoName, 8)
		if err != nil {
			return fmt.Errorf("agent: code search: %w", err)
		}
		response := l.recordHits(ex, hits)
		ex.AddSearchStep(exchange.SearchStep{Kind: exchange.StepCode, Query: action.Query, Response: response})
		ex.AddUpdate(exchange.Update{Kind: exchange.UpdateKindStartStep, Content: response})

	case ActionPath:
		paths, err := l.tools.PathSearch(ctx, action.Query, l.repoName, 50)
		if err != nil {
			return fmt.Errorf("agent: path search: %w", err)
		}
		for _, p := range paths {
			ex.GetPathAlias(p)
		}
		response := fmt.Sprintf("%d paths found", len(paths))
		ex.AddSearchStep(exchange.SearchStep{Kind: exchange.StepPath, Query: action.Query, Response: response})
		ex.AddUpdate(exchange.Update{Kind: exchange.UpdateKindStartStep, Content: response})

	case ActionProc:
		paths := l.resolveAliases(ex, action.Paths)
		hits, err := l.tools.Proc(ctx, action.Query, paths)
		if err != nil {
			return fmt.Errorf("agent: proc: %w", err)
		}
		response := l.recordHits(ex, hits)
		ex.AddSearchStep(exchange.SearchStep{Kind: exchange.StepProc, Query: action.Query, Response: response})
		ex.AddUpdate(exchange.Update{Kind: exchange.UpdateKindStartStep, Content: response})

	default:
		return fmt.Errorf("agent: unknown action %q", action.Kind)
	}
	return nil
}

// recordHits assigns each hit a path alias, appends a CodeChunk for it, and
// renders the compact {path_alias, lines, content} JSON the wire contract
// expects as a tool's response text.
func (l *Loop) recordHits(ex *exchange.Exchange, hits []SearchHit) string {
	type chunkView struct {
		Alias int    `json:"path_alias"`
		Lines string `json:"lines"`
		Code  string `json:"content"`
	}
	if len(hits) == 0 {
		return "[]"
	}
	views := make([]chunkView, 0, len(hits))
	for _, h := range hits {
		c := ex.AddCodeChunk(h.Path, h.Snippet, h.StartLine, h.EndLine)
		views = append(views, chunkView{Alias: c.Alias, Lines: fmt.Sprintf("%d-%d", h.StartLine, h.EndLine), Code: h.Snippet})
	}
	encoded, err := json.Marshal(views)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

// resolveAliases maps alias indices into the exchange's path table back
// into full paths, silently dropping any alias outside its bounds (an
// unknown-alias call is a user error the wire contract forbids).
func (l *Loop) resolveAliases(ex *exchange.Exchange, aliases []int) []string {
	paths := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if a >= 0 && a < len(ex.Paths) {
			paths = append(paths, ex.Paths[a])
		}
	}
	return paths
}

// decide asks the LLM which action to take next, given everything recorded
// on the exchange so far. proc is only offered once at least one path is
// already in the exchange's table.
func (l *Loop) decide(ctx context.Context, ex *exchange.Exchange, history []exchange.Exchange) (Action, error) {
	messages := buildMessages(systemPrompt(ex), history, ex)
	req := llm.Request{Messages: messages, Functions: functionSpecs(len(ex.Paths) > 0), Temperature: 0}
	raw, err := l.gateway.Complete(ctx, req)
	if err != nil {
		return Action{}, err
	}
	return parseAction(raw)
}

// answer asks the LLM for a final, cited answer and records it. aliases is
// the set of path aliases the model committed to with its `none` call.
func (l *Loop) answer(ctx context.Context, ex *exchange.Exchange, history []exchange.Exchange, aliases []int) (*exchange.Exchange, error) {
	if len(aliases) == 1 && aliases[0] >= 0 && aliases[0] < len(ex.Paths) {
		ex.FocusedChunk = &exchange.CodeChunk{Alias: aliases[0]}
		ex.AddUpdate(exchange.Update{Kind: exchange.UpdateKindFocus, Content: ex.Paths[aliases[0]]})
	}

	messages := buildMessages(answerPrompt(), history, ex)
	raw, err := l.gateway.Complete(ctx, llm.Request{Messages: messages, Temperature: 0})
	if err != nil {
		return nil, fmt.Errorf("agent: answer: %w", err)
	}
	ex.Answer = exchange.ToMarkdown(raw)
	ex.ResponseTS = time.Now()
	ex.AddUpdate(exchange.Update{Kind: exchange.UpdateKindConclude, Content: ex.Answer})
	return ex, nil
}
