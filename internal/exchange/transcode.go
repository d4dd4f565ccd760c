package exchange

import (
	"fmt"
	"regexp"
	"strings"
)

// The agent streams its answer as a sequence of <GeneratedCode> (code the
// model wrote) and <QuotedCode> (code quoted verbatim from the repo)
// blocks, each wrapping <Code>, <Language>, <Path>, <StartLine>, <EndLine>
// children in that order. SanitizeArticle finishes a block that was cut
// off mid-stream and re-escapes each <Code> body idempotently; ToMarkdown
// renders a sanitised block into the fenced Markdown the user-facing
// transcript shows.
const (
	tagGeneratedCode = "GeneratedCode"
	tagQuotedCode    = "QuotedCode"
	tagCode          = "Code"
	tagLanguage      = "Language"
	tagPath          = "Path"
	tagStartLine     = "StartLine"
	tagEndLine       = "EndLine"
)

// childOrder is the canonical order SanitizeArticle closes still-open child
// tags in when a block is cut short.
var childOrder = []string{tagCode, tagLanguage, tagPath, tagStartLine, tagEndLine}

var (
	halfOpenTailRe = regexp.MustCompile(`<[A-Za-z][A-Za-z0-9]*$`)
	blockOpenRe    = regexp.MustCompile(`<(GeneratedCode|QuotedCode)>`)
	blockRe        = regexp.MustCompile(`(?s)<(GeneratedCode|QuotedCode)>(.*?)</(?:GeneratedCode|QuotedCode)>`)
	codeBodyRe     = regexp.MustCompile(`(?s)<Code>(.*?)</Code>`)
	fencedHeaderRe = regexp.MustCompile("(?s)```type:(Quoted|Generated),lang:([^,\\n]*),path:([^,\\n]*),lines:(\\d+)-(\\d+)\\n(.*?)\\n```")
)

func childOpenRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`<` + name + `>`)
}

func childCloseRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`</` + name + `>`)
}

func childBodyRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)<` + name + `>(.*?)</` + name + `>`)
}

// dropHalfOpenTags removes a trailing opening tag that never received its
// closing `>`, e.g. a stream that ends mid-write of "<StartLine".
func dropHalfOpenTags(s string) string {
	return halfOpenTailRe.ReplaceAllString(s, "")
}

// closeOpenTags finishes the last <GeneratedCode>/<QuotedCode> block in s if
// it was never closed: any child tag opened but not yet closed is closed,
// in childOrder, then the block itself is closed.
func closeOpenTags(s string) string {
	opens := blockOpenRe.FindAllStringSubmatchIndex(s, -1)
	if len(opens) == 0 {
		return s
	}
	last := opens[len(opens)-1]
	kind := s[last[2]:last[3]]
	closeTag := "</" + kind + ">"
	if strings.Contains(s[last[1]:], closeTag) {
		return s
	}

	body := s[last[1]:]
	var b strings.Builder
	b.WriteString(s)
	for _, name := range childOrder {
		if childOpenRe(name).MatchString(body) && !childCloseRe(name).MatchString(body) {
			b.WriteString("</" + name + ">")
		}
	}
	b.WriteString(closeTag)
	return b.String()
}

// escapeCodeBody re-escapes &, <, > inside a <Code> body idempotently: it
// first undoes any prior escaping, then re-applies it, so calling this
// twice on the same input yields the same output as calling it once.
func escapeCodeBody(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func unescapeCodeBody(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	return s
}

// SanitizeArticle is the idempotent pass applied to every incoming delta of
// the agent's answer stream: drop unrecoverable half-open tags, finish any
// block truncated mid-write, and re-escape each <Code> body so repeated
// sanitisation never changes an already-sanitised string.
func SanitizeArticle(s string) string {
	s = dropHalfOpenTags(s)
	s = closeOpenTags(s)
	s = codeBodyRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := codeBodyRe.FindStringSubmatch(m)
		return "<Code>" + escapeCodeBody(sub[1]) + "</Code>"
	})
	return s
}

func extractChild(body, name string) string {
	sub := childBodyRe(name).FindStringSubmatch(body)
	if sub == nil {
		return ""
	}
	return sub[1]
}

// ToMarkdown sanitises xml and renders each code block into a fenced
// Markdown block headed `type:Quoted|Generated,lang:<L>,path:<P>,lines:<s>-<e>`.
func ToMarkdown(xml string) string {
	s := SanitizeArticle(xml)
	return blockRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := blockRe.FindStringSubmatch(m)
		kind, body := sub[1], sub[2]
		typeName := "Generated"
		if kind == tagQuotedCode {
			typeName = "Quoted"
		}
		code := unescapeCodeBody(extractChild(body, tagCode))
		lang := extractChild(body, tagLanguage)
		path := extractChild(body, tagPath)
		start := extractChild(body, tagStartLine)
		end := extractChild(body, tagEndLine)
		header := fmt.Sprintf("type:%s,lang:%s,path:%s,lines:%s-%s", typeName, lang, path, start, end)
		return fmt.Sprintf("```%s\n%s\n```", header, code)
	})
}

// FromMarkdown is the inverse direction, used when replaying a stored
// Markdown transcript back through the agent loop as conversation history.
func FromMarkdown(md string) string {
	return fencedHeaderRe.ReplaceAllStringFunc(md, func(m string) string {
		sub := fencedHeaderRe.FindStringSubmatch(m)
		typeName, lang, path, start, end, code := sub[1], sub[2], sub[3], sub[4], sub[5], sub[6]
		kind := tagGeneratedCode
		if typeName == "Quoted" {
			kind = tagQuotedCode
		}
		return fmt.Sprintf("<%s><Code>%s</Code><Language>%s</Language><Path>%s</Path><StartLine>%s</StartLine><EndLine>%s</EndLine></%s>",
			kind, escapeCodeBody(code), lang, path, start, end, kind)
	})
}

// Redact replaces every <Code> body with the literal [REDACTED], the form
// an Exchange's code blocks take when folded into history for a later
// prompt rather than rendered for the user.
func Redact(xml string) string {
	return codeBodyRe.ReplaceAllString(xml, "<Code>[REDACTED]</Code>")
}
