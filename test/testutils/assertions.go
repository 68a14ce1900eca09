package testutils

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the HTTP status code
func (ha *HTTPAssertions) StatusCode(resp *http.Response, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, resp.StatusCode, msgAndArgs...)
}

// Header asserts that a header exists with expected value
func (ha *HTTPAssertions) Header(resp *http.Response, headerName, expectedValue string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedValue, resp.Header.Get(headerName), msgAndArgs...)
}

// HasHeader asserts that a header exists
func (ha *HTTPAssertions) HasHeader(resp *http.Response, headerName string, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	_, exists := resp.Header[http.CanonicalHeaderKey(headerName)]
	assert.True(ha.t, exists, "Response should have header %s", headerName)
}

// SecurityHeaders asserts that security headers are present
func (ha *HTTPAssertions) SecurityHeaders(resp *http.Response) {
	for _, header := range []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Referrer-Policy",
		"Content-Security-Policy",
	} {
		ha.HasHeader(resp, header)
	}
}

// Document is a parsed HTML page or fragment
type Document struct {
	t    *testing.T
	root *html.Node
}

// ParseHTML parses body as HTML
func ParseHTML(t *testing.T, body string) *Document {
	t.Helper()
	root, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err, "body should be valid HTML")
	return &Document{t: t, root: root}
}

// Element is a matched HTML element
type Element struct {
	node *html.Node
}

// Attr returns the value of the named attribute
func (e Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated text content
func (e Element) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return strings.TrimSpace(b.String())
}

// FindAll returns the elements matching match in document order
func (d *Document) FindAll(match func(Element) bool) []Element {
	var out []Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(Element{node: n}) {
			out = append(out, Element{node: n})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// ByAttr matches elements with attribute name, and value when value is not empty
func ByAttr(name, value string) func(Element) bool {
	return func(e Element) bool {
		v, ok := e.Attr(name)
		return ok && (value == "" || v == value)
	}
}

// ByTag matches elements by tag name
func ByTag(tag string) func(Element) bool {
	return func(e Element) bool {
		return e.node.Data == tag
	}
}

// Count returns the number of elements matching match
func (d *Document) Count(match func(Element) bool) int {
	return len(d.FindAll(match))
}

// First returns the first element matching match or fails the test
func (d *Document) First(match func(Element) bool) Element {
	d.t.Helper()
	found := d.FindAll(match)
	require.NotEmpty(d.t, found, "expected a matching element")
	return found[0]
}
