package docscraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleHTML = `<!doctype html>
<html>
<head>
	<title>Widgets Guide</title>
	<meta name="description" content="How to use widgets">
</head>
<body>
	<nav class="navbar">skip me</nav>
	<article>
		<h1>Widgets Guide</h1>
		<p>Widgets are the building blocks of the UI toolkit used across the product line.</p>
		<h2>Usage</h2>
		<p>Create a widget with <code>New()</code> and call <a href="/docs/render">Render</a> on it.</p>
		<pre><code class="language-go">w := New()
w.Render()</code></pre>
	</article>
	<footer class="footer">copyright notice</footer>
</body>
</html>`

func TestFetchExtractsTitleAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(sampleHTML))
	}))
	defer srv.Close()

	s := New()
	page, err := s.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Title != "Widgets Guide" {
		t.Errorf("unexpected title: %q", page.Title)
	}
	if page.Description != "How to use widgets" {
		t.Errorf("unexpected description: %q", page.Description)
	}
	if !strings.Contains(page.Text, "## Usage") {
		t.Errorf("expected rendered h2 heading, got %q", page.Text)
	}
	if !strings.Contains(page.Text, "```go") {
		t.Errorf("expected fenced code block with language, got %q", page.Text)
	}
	if strings.Contains(page.Text, "copyright notice") {
		t.Errorf("expected footer to be excluded, got %q", page.Text)
	}
}

func TestFetchErrorsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := New()
	if _, err := s.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected an error for a 404 response")
	}
}
