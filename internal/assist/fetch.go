package assist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Pre-compiled cleanup patterns.
var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

const (
	fetchTimeout  = 60 * time.Second
	fetchMaxBytes = 2 << 20 // response body cap
	fetchMaxChars = 50000   // rendered markdown cap
)

// PageFetcher downloads a web page and reduces it to markdown so it can
// be injected into a chat conversation as context.
type PageFetcher struct {
	httpClient *http.Client
	maxChars   int
}

// NewPageFetcher creates a fetcher with default limits.
func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
		maxChars:   fetchMaxChars,
	}
}

// Fetch retrieves rawURL and returns its content as markdown. Plain-text
// responses pass through unchanged; HTML is stripped to headings, links,
// lists and code blocks.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q: only http and https are allowed", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; codeloft/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") || strings.Contains(contentType, "text/markdown") {
		return f.truncate(string(body)), nil
	}

	markdown, err := renderHTML(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to convert page: %w", err)
	}
	return f.truncate(markdown), nil
}

func (f *PageFetcher) truncate(s string) string {
	if len(s) > f.maxChars {
		return s[:f.maxChars] + "\n\n[...truncated...]"
	}
	return s
}

// renderHTML converts an HTML document to simplified markdown.
func renderHTML(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	walkNode(doc, &sb, 0)
	return tidyMarkdown(sb.String()), nil
}

// walkNode renders a node and its children into sb. Depth is capped to
// keep pathological documents from recursing forever.
func walkNode(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 50 {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "aside", "footer", "header":
			return
		case "title", "h1":
			sb.WriteString("\n\n# ")
		case "h2":
			sb.WriteString("\n\n## ")
		case "h3":
			sb.WriteString("\n\n### ")
		case "h4", "h5", "h6":
			sb.WriteString("\n\n#### ")
		case "p", "div", "section", "article", "table", "tr":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		case "code":
			sb.WriteString("`")
		case "pre":
			sb.WriteString("\n\n```\n")
		case "strong", "b":
			sb.WriteString("**")
		case "em", "i":
			sb.WriteString("*")
		case "a":
			if href := attrVal(n, "href"); href != "" && !strings.HasPrefix(href, "#") {
				sb.WriteString("[")
			}
		case "img":
			if alt := attrVal(n, "alt"); alt != "" {
				fmt.Fprintf(sb, "[image: %s]", alt)
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNode(c, sb, depth+1)
	}

	if n.Type != html.ElementNode {
		return
	}
	switch n.Data {
	case "title", "h1", "h2", "h3", "h4", "h5", "h6":
		sb.WriteString("\n\n")
	case "code":
		sb.WriteString("`")
	case "pre":
		sb.WriteString("\n```\n\n")
	case "strong", "b":
		sb.WriteString("**")
	case "em", "i":
		sb.WriteString("*")
	case "a":
		if href := attrVal(n, "href"); href != "" && !strings.HasPrefix(href, "#") {
			fmt.Fprintf(sb, "](%s)", href)
		}
	}
}

func attrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// tidyMarkdown collapses runs of whitespace left over from rendering.
func tidyMarkdown(s string) string {
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	s = multiSpacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
