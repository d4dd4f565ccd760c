package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jamaly87/codesearch/internal/exchange"
	"github.com/jamaly87/codesearch/internal/llm"
)

var (
	querySchema = json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`)
	procSchema  = json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"},"paths":{"type":"array","items":{"type":"integer"}}},"required":["query","paths"]}`)
	noneSchema  = json.RawMessage(`{"type":"object","properties":{"paths":{"type":"array","items":{"type":"integer"}}},"required":["paths"]}`)
)

// functionSpecs builds the agent's tool schema: code/path/none are always
// offered, proc only once at least one path is already in scope, mirroring
// the wire contract's four fixed function names.
func functionSpecs(pathsAvailable bool) []llm.FunctionSpec {
	specs := []llm.FunctionSpec{
		{Name: "code", Description: "Run a semantic search over the indexed repository.", Parameters: querySchema},
		{Name: "path", Description: "Fuzzy search over known file paths.", Parameters: querySchema},
		{Name: "none", Description: "Commit the final answer using the given path aliases.", Parameters: noneSchema},
	}
	if pathsAvailable {
		specs = append(specs, llm.FunctionSpec{Name: "proc", Description: "Read the named files (by path alias) for detail.", Parameters: procSchema})
	}
	return specs
}

// systemPrompt precedes the tool rules with a "## PATHS ##" index table
// listing every path known to ex so far, letting the model refer to them by
// alias in proc/none calls instead of repeating full paths.
func systemPrompt(ex *exchange.Exchange) string {
	var b strings.Builder
	if len(ex.Paths) > 0 {
		b.WriteString("## PATHS ##\nindex, path\n")
		for i, p := range ex.Paths {
			fmt.Fprintf(&b, "%d, %s\n", i, p)
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.TrimSpace(`
You are a code search assistant. Choose exactly one of the offered
functions for your next step; you must call a function, never answer in
plain text. Only call proc or none with path aliases that already appear
in the PATHS table above.
`))
	return b.String()
}

func answerPrompt() string {
	return strings.TrimSpace(`
Using the search results recorded in this conversation, write a final
answer to the user's question. Cite code with <QuotedCode> (verbatim from
the repository) or <GeneratedCode> (code you wrote), each wrapping <Code>,
<Language>, <Path>, <StartLine>, <EndLine>. Be concise.
`)
}

// buildMessages renders prior exchanges and the in-progress one into chat
// messages, system prompt first.
func buildMessages(system string, history []exchange.Exchange, current *exchange.Exchange) []llm.Message {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	for _, ex := range history {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: ex.Query})
		if ex.Answer != "" {
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: exchange.Redact(exchange.FromMarkdown(ex.Answer))})
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: current.Query})
	for _, s := range current.SearchSteps {
		messages = append(messages, llm.Message{
			Role:    llm.RoleAssistant,
			Content: fmt.Sprintf("[%s: %s]\n%s", s.Kind, s.Query, s.Response),
		})
	}
	return messages
}

// parseAction decodes raw (a JSON-encoded llm.FunctionCall, the string
// form Gateway.Complete returns for a function-calling request) into the
// Action it names. A reply that isn't a recognised function call fails
// open to Answer rather than looping forever on an unparsable turn.
func parseAction(raw string) (Action, error) {
	var call llm.FunctionCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		return Action{Kind: ActionAnswer}, nil
	}

	switch call.Name {
	case "code":
		var args struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal([]byte(call.Arguments), &args)
		return Action{Kind: ActionCode, Query: args.Query}, nil
	case "path":
		var args struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal([]byte(call.Arguments), &args)
		return Action{Kind: ActionPath, Query: args.Query}, nil
	case "proc":
		var args struct {
			Query string `json:"query"`
			Paths []int  `json:"paths"`
		}
		_ = json.Unmarshal([]byte(call.Arguments), &args)
		if len(args.Paths) > 5 {
			args.Paths = args.Paths[:5]
		}
		return Action{Kind: ActionProc, Query: args.Query, Paths: args.Paths}, nil
	case "none":
		var args struct {
			Paths []int `json:"paths"`
		}
		_ = json.Unmarshal([]byte(call.Arguments), &args)
		return Action{Kind: ActionAnswer, Paths: args.Paths}, nil
	default:
		return Action{Kind: ActionAnswer}, nil
	}
}
