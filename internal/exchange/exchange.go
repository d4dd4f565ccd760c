// Package exchange models one turn of an agent conversation — the query,
// the path-alias table and code chunks the agent loop accumulated while
// answering it, and the final answer — plus a transcoder between the
// agent's internal XML step format and the Markdown rendered back to the
// user.
package exchange

import "time"

// UpdateKind classifies one entry in an Exchange's Update stream, the
// append-only message sequence a subscriber channel observes as the agent
// loop runs.
type UpdateKind string

const (
	UpdateKindStartStep   UpdateKind = "start_step"
	UpdateKindReplaceStep UpdateKind = "replace_step"
	UpdateKindArticle     UpdateKind = "article"
	UpdateKindConclude    UpdateKind = "conclude"
	UpdateKindFocus       UpdateKind = "focus"
	UpdateKindCancel      UpdateKind = "cancel"
)

// Update is one recorded step of the agent loop.
type Update struct {
	Kind    UpdateKind `json:"kind"`
	Content string     `json:"content"`
	At      time.Time  `json:"at"`
}

// StepKind names which tool a SearchStep invoked.
type StepKind string

const (
	StepCode StepKind = "code"
	StepPath StepKind = "path"
	StepProc StepKind = "proc"
)

// SearchStep records one tool invocation and its response text.
type SearchStep struct {
	Kind     StepKind `json:"kind"`
	Query    string   `json:"query"`
	Response string   `json:"response"`
}

// CodeChunk is a snippet of a file surfaced to the agent, keyed by a
// per-exchange path alias rather than a full path so prompts and tool
// arguments can stay compact.
type CodeChunk struct {
	Alias     int    `json:"alias"`
	Snippet   string `json:"snippet"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	StartByte int    `json:"start_byte,omitempty"`
	EndByte   int    `json:"end_byte,omitempty"`
}

// Exchange is one query/answer turn within a Conversation.
type Exchange struct {
	ID           string       `json:"id"`
	Query        string       `json:"query"`
	SearchSteps  []SearchStep `json:"search_steps"`
	CodeChunks   []CodeChunk  `json:"code_chunks"`
	Paths        []string     `json:"paths"`
	Updates      []Update     `json:"updates"`
	Answer       string       `json:"answer"`
	Conclusion   string       `json:"conclusion,omitempty"`
	FocusedChunk *CodeChunk   `json:"focused_chunk,omitempty"`
	QueryTS      time.Time    `json:"query_ts"`
	ResponseTS   time.Time    `json:"response_ts,omitempty"`
}

// GetPathAlias returns path's 0-based index into e.Paths, appending it if
// it isn't already present. The source's path table is maintained by a
// single sequential call per path rather than a lock; concurrent tool
// calls within one exchange are expected to run one at a time, not race to
// append the same path — preserved here explicitly rather than introducing
// per-exchange locking.
func (e *Exchange) GetPathAlias(path string) int {
	for i, p := range e.Paths {
		if p == path {
			return i
		}
	}
	e.Paths = append(e.Paths, path)
	return len(e.Paths) - 1
}

// AddUpdate appends u to the exchange's update stream.
func (e *Exchange) AddUpdate(u Update) {
	e.Updates = append(e.Updates, u)
}

// AddSearchStep records one tool call and its response.
func (e *Exchange) AddSearchStep(s SearchStep) {
	e.SearchSteps = append(e.SearchSteps, s)
}

// AddCodeChunk registers path in the alias table (if new) and appends a
// CodeChunk pointing at it.
func (e *Exchange) AddCodeChunk(path, snippet string, startLine, endLine int) CodeChunk {
	c := CodeChunk{Alias: e.GetPathAlias(path), Snippet: snippet, StartLine: startLine, EndLine: endLine}
	e.CodeChunks = append(e.CodeChunks, c)
	return c
}

// Conversation is an ordered list of Exchanges sharing context, the unit
// the agent loop threads as conversation history.
type Conversation struct {
	ID        string     `json:"id"`
	RepoName  string     `json:"repo_name"`
	Exchanges []Exchange `json:"exchanges"`
}

// History returns the conversation's prior exchanges in order, for
// inclusion in the next LLM prompt.
func (c *Conversation) History() []Exchange {
	return c.Exchanges
}
