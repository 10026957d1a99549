package assist

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Widget Docs</title><script>var tracker = 1;</script></head>
<body>
<nav><a href="/home">menu entry</a></nav>
<h2>Getting Started</h2>
<p>Install the widget, then read the <a href="/api">API reference</a>.</p>
<ul><li>first step</li><li>second step</li></ul>
<pre>go run ./cmd/widget</pre>
</body>
</html>`

func TestPageFetcher_RendersHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	f := NewPageFetcher()
	out, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "# Widget Docs")
	assert.Contains(t, out, "## Getting Started")
	assert.Contains(t, out, "](/api)")
	assert.Contains(t, out, "- first step")
	assert.Contains(t, out, "```")
	assert.Contains(t, out, "go run ./cmd/widget")

	// Script bodies and navigation chrome are stripped.
	assert.NotContains(t, out, "tracker")
	assert.NotContains(t, out, "menu entry")
}

func TestPageFetcher_PlainTextPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "raw notes\nline two")
	}))
	defer srv.Close()

	f := NewPageFetcher()
	out, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "raw notes\nline two", out)
}

func TestPageFetcher_TruncatesLongContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, strings.Repeat("x", 2000))
	}))
	defer srv.Close()

	f := NewPageFetcher()
	f.maxChars = 100
	out, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "[...truncated...]"))
	assert.Less(t, len(out), 200)
}

func TestPageFetcher_RejectsBadURLs(t *testing.T) {
	f := NewPageFetcher()

	_, err := f.Fetch(context.Background(), "")
	require.Error(t, err)

	_, err = f.Fetch(context.Background(), "ftp://example.com/file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestPageFetcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewPageFetcher()
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}
