// Package docscraper fetches a documentation page and extracts its main
// article text, ready for chunking and embedding alongside code. Grounded
// on bloop's scraper/article.rs: fetch with a short timeout and a capped
// redirect policy, find the best "article body" node with a small set of
// heuristics, then walk it into Markdown-ish text (headings, fenced code,
// links, list items). Uses goquery in place of the Rust `select` crate.
package docscraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is the extracted content of one scraped document.
type Page struct {
	URL         string
	Title       string
	Description string
	Text        string
}

// Scraper fetches and extracts documentation pages.
type Scraper struct {
	http      *http.Client
	UserAgent string
}

// New builds a Scraper with a capped timeout and redirect count, the same
// defaults bloop's ArticleBuilder uses (5s timeout, 2 redirects).
func New() *Scraper {
	return &Scraper{
		http: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > 2 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		UserAgent: "codesearch-doc-scraper",
	}
}

// Fetch downloads url and extracts its article content.
func (s *Scraper) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("docscraper: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docscraper: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("docscraper: %s returned status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("docscraper: parse %s: %w", url, err)
	}

	return &Page{
		URL:         url,
		Title:       title(doc),
		Description: metaContent(doc, "description"),
		Text:        articleText(doc),
	}, nil
}

func title(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := metaProperty(doc, "og:title"); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func metaContent(doc *goquery.Document, name string) string {
	sel := doc.Find(fmt.Sprintf(`meta[name="%s"], meta[property="%s"]`, name, name)).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

func metaProperty(doc *goquery.Document, property string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property)).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

// articleBodySelectors mirrors bloop's ARTICLE_BODY_ATTR / common "main
// content" tags, tried before falling back to the scored heuristic.
var articleBodySelectors = []string{
	`[itemprop="articleBody"]`,
	`[data-testid="article-body"]`,
	`[name="articleBody"]`,
	"article",
	"main",
	"#main",
	"#content",
	"#doc-content",
	"#contents",
	".book-body",
}

func articleText(doc *goquery.Document) string {
	for _, sel := range articleBodySelectors {
		nodes := doc.Find(sel)
		if nodes.Length() == 1 {
			return cleanNodeText(nodes.First())
		}
	}
	return cleanNodeText(bestScoredNode(doc))
}

// badAttrRe matches the class/id patterns bloop's RE_BAD_NODES_ATTR
// filters out (boilerplate like navbars, share tools, footers).
var badAttrRe = regexp.MustCompile(`(?i)^side$|combx|retweet|menucontainer|navbar|comment|footer|sponsor|social|byline|breadcrumbs|^print$|popup|share|subscribe`)

var badNodeNames = map[string]bool{
	"nav": true, "script": true, "style": true, "figcaption": true,
	"figure": true, "button": true, "summary": true, "aside": true,
}

func isBadNode(s *goquery.Selection) bool {
	name := goquery.NodeName(s)
	if badNodeNames[name] {
		return true
	}
	for _, attr := range []string{"id", "class", "name"} {
		if v, ok := s.Attr(attr); ok && badAttrRe.MatchString(v) {
			return true
		}
	}
	return false
}

// cleanNodeText walks node's children, rendering headings, fenced code
// blocks, links and list items the way bloop's DocumentCleaner does.
func cleanNodeText(node *goquery.Selection) string {
	if node == nil || node.Length() == 0 {
		return ""
	}
	var b strings.Builder
	renderChildren(node, &b)
	return strings.TrimSpace(b.String())
}

func renderChildren(node *goquery.Selection, b *strings.Builder) {
	if isBadNode(node) {
		return
	}
	node.Contents().Each(func(_ int, child *goquery.Selection) {
		renderNode(child, b)
	})
}

func renderNode(child *goquery.Selection, b *strings.Builder) {
	if isBadNode(child) {
		return
	}
	name := goquery.NodeName(child)
	switch {
	case len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6':
		level := int(name[1] - '0')
		b.WriteString("\n\n")
		b.WriteString(strings.Repeat("#", level))
		b.WriteByte(' ')
		b.WriteString(strings.TrimSpace(child.Text()))
		b.WriteByte('\n')
	case name == "pre":
		lang := codeLanguage(child)
		b.WriteString("\n```")
		b.WriteString(lang)
		b.WriteByte('\n')
		text := child.Text()
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("```\n")
	case name == "a":
		text := strings.TrimSpace(child.Text())
		if href, ok := child.Attr("href"); ok && text != "" {
			fmt.Fprintf(b, "[%s](%s)", text, href)
		} else {
			b.WriteString(text)
		}
	case name == "code":
		b.WriteByte('`')
		b.WriteString(child.Text())
		b.WriteByte('`')
	case name == "li":
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(child.Text()))
		b.WriteByte('\n')
	case name == "#text":
		b.WriteString(child.Text())
	default:
		renderChildren(child, b)
	}
	if isParagraphLike(name) {
		b.WriteByte('\n')
	}
}

func isParagraphLike(name string) bool {
	switch name {
	case "p", "div", "ul", "ol", "table", "tr", "blockquote", "dl", "img":
		return true
	default:
		return false
	}
}

// codeLanguage reads a "language-xxx" / "lang-xxx" class off a <pre> or its
// <code> child, matching bloop's extract_language_classes heuristic.
func codeLanguage(pre *goquery.Selection) string {
	classes := pre.AttrOr("class", "") + " " + pre.Find("code").First().AttrOr("class", "")
	for _, c := range strings.Fields(classes) {
		c = strings.TrimPrefix(c, "language-")
		c = strings.TrimPrefix(c, "lang-")
		if c != "" && c != "highlight" && c != "source" {
			return c
		}
	}
	return ""
}

// bestScoredNode falls back to bloop's paragraph-density heuristic when no
// single well-known article container exists: score every <p>/<pre>/<td>
// node by rough word count and pick the parent with the highest total.
func bestScoredNode(doc *goquery.Document) *goquery.Selection {
	type candidate struct {
		node  *goquery.Selection
		score int
	}
	parentScores := map[string]*candidate{}

	doc.Find("p, pre, td").Each(func(_ int, n *goquery.Selection) {
		if isBadNode(n) || isHighLinkDensity(n) {
			return
		}
		words := len(strings.Fields(n.Text()))
		if words <= 2 {
			return
		}
		parent := n.Parent()
		if parent.Length() == 0 {
			return
		}
		key := nodeKey(parent)
		c, ok := parentScores[key]
		if !ok {
			c = &candidate{node: parent}
			parentScores[key] = c
		}
		c.score += words
	})

	var best *candidate
	for _, c := range parentScores {
		if best == nil || c.score > best.score {
			best = c
		}
	}
	if best == nil {
		return doc.Find("body")
	}
	return best.node
}

// nodeKey gives a goquery.Selection a stable identity for map grouping;
// goquery has no direct node-id API, so the address of the underlying
// *html.Node serves as the key.
func nodeKey(s *goquery.Selection) string {
	n := s.Get(0)
	return fmt.Sprintf("%p", n)
}

func isHighLinkDensity(n *goquery.Selection) bool {
	words := strings.Fields(n.Text())
	if len(words) == 0 {
		return true
	}
	linkWords := 0
	links := n.Find("a")
	if links.Length() == 0 {
		return false
	}
	links.Each(func(_ int, a *goquery.Selection) {
		linkWords += len(strings.Fields(a.Text()))
	})
	density := float64(linkWords) / float64(len(words))
	return density*float64(links.Length()) >= 1.0
}
