// Package checks implements check handlers for the smoketest engine.
// This file contains the HTTP checks: reachability by status code, and
// content checks using CSS selectors (HTML) or XPath expressions (XML).
package checks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"

	"smoketest/pkg/assert"
	"smoketest/pkg/failure"
)

const (
	TypeHTTPReachability = "http_reachability"
	TypeHTTPContent      = "http_content"
)

// maxBodySize caps how much of a response body content checks parse.
const maxBodySize = 10 << 20

// HTTPReachability issues a GET and compares the response status code.
type HTTPReachability struct {
	Base           `yaml:",inline"`
	URL            string `yaml:"url"`
	ExpectedStatus string `yaml:"expected_status"`
}

func (c *HTTPReachability) Type() string { return TypeHTTPReachability }

func (c *HTTPReachability) Fields() []Field {
	return []Field{
		nameField(&c.Base),
		{Name: "url", Description: "URL to request", Category: "HTTP Properties", Required: true, Value: c.URL},
		{Name: "expected_status", Description: "Expected HTTP status code, e.g. 200", Category: "HTTP Properties", Required: true, Value: c.ExpectedStatus},
	}
}

func (c *HTTPReachability) Validate() error {
	if err := validateURL(c.Type(), c.URL); err != nil {
		return err
	}
	if _, err := strconv.Atoi(strings.TrimSpace(c.ExpectedStatus)); err != nil {
		return failure.Configuration(c.Type(), "expected_status %q is not a status code", c.ExpectedStatus)
	}
	return nil
}

// Run treats every response, whatever its status, as an observation. Only a
// request that produced no response at all is an error.
func (c *HTTPReachability) Run(ctx context.Context, env *Environment) error {
	resp, err := get(ctx, env, c.Type(), c.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	status := strconv.Itoa(resp.StatusCode)
	expected := strings.TrimSpace(c.ExpectedStatus)

	slog.Debug("HTTP response received", "url", c.URL, "status", status, "expected", expected)

	return assert.EqualString(expected, status, false,
		"The HTTP response was %s. The expected response is %s", status, expected)
}

func (c *HTTPReachability) Examples() []Check {
	return []Check{
		&HTTPReachability{Base: Base{Label: "Home page responds"}, URL: "http://www.google.com", ExpectedStatus: "200"},
		&HTTPReachability{Base: Base{Label: "Admin is not exposed"}, URL: "https://example.com/admin", ExpectedStatus: "404"},
	}
}

// HTTPContent fetches a document and asserts that a CSS selector (HTML) or an
// XPath expression (XML) matches, optionally containing some text.
type HTTPContent struct {
	Base        `yaml:",inline"`
	URL         string `yaml:"url"`
	CSSSelector string `yaml:"css_selector,omitempty"`
	XPath       string `yaml:"xpath,omitempty"`
	Contains    string `yaml:"contains,omitempty"`
}

func (c *HTTPContent) Type() string { return TypeHTTPContent }

func (c *HTTPContent) Fields() []Field {
	return []Field{
		nameField(&c.Base),
		{Name: "url", Description: "URL of the document", Category: "HTTP Properties", Required: true, Value: c.URL},
		{Name: "css_selector", Description: "CSS selector evaluated against an HTML document", Category: "Content Properties", Value: c.CSSSelector},
		{Name: "xpath", Description: "XPath expression evaluated against an XML document", Category: "Content Properties", Value: c.XPath},
		{Name: "contains", Description: "Text the matched content must contain", Category: "Content Properties", Value: c.Contains},
	}
}

func (c *HTTPContent) Validate() error {
	if err := validateURL(c.Type(), c.URL); err != nil {
		return err
	}
	switch {
	case c.CSSSelector == "" && c.XPath == "":
		return failure.Configuration(c.Type(), "one of 'css_selector' or 'xpath' is required")
	case c.CSSSelector != "" && c.XPath != "":
		return failure.Configuration(c.Type(), "'css_selector' and 'xpath' are mutually exclusive")
	}
	return nil
}

func (c *HTTPContent) Run(ctx context.Context, env *Environment) error {
	resp, err := get(ctx, env, c.Type(), c.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBodySize)

	var (
		matched []string
		query   string
	)
	if c.CSSSelector != "" {
		query = c.CSSSelector
		matched, err = selectHTML(body, c.CSSSelector)
	} else {
		query = c.XPath
		matched, err = selectXML(body, c.XPath)
	}
	if err != nil {
		return failure.WithOrigin(err, c.Type())
	}

	slog.Debug("Content query evaluated", "url", c.URL, "query", query, "matches", len(matched))

	if len(matched) == 0 {
		return failure.Assertion(c.Type(), "nothing matches %q in %s (HTTP %d)", query, c.URL, resp.StatusCode)
	}
	if c.Contains == "" {
		return nil
	}
	text := strings.Join(matched, "\n")
	return assert.Contains(text, c.Contains,
		"content matched by %q does not contain %q", query, c.Contains)
}

func (c *HTTPContent) Examples() []Check {
	return []Check{
		&HTTPContent{
			Base:        Base{Label: "Version banner shows release"},
			URL:         "https://example.com/",
			CSSSelector: "footer .version",
			Contains:    "4.2",
		},
		&HTTPContent{
			Base:     Base{Label: "Status feed reports success"},
			URL:      "https://example.com/status.xml",
			XPath:    "//response/status",
			Contains: "success",
		},
	}
}

func selectHTML(r io.Reader, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, failure.Probe("", err, "failed to parse HTML")
	}

	var texts []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(s.Text()))
	})
	return texts, nil
}

func selectXML(r io.Reader, expr string) ([]string, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, failure.Assertion("", "response is not valid XML: %v", err)
	}

	nodes, err := xmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil, failure.Configuration("", "invalid xpath %q: %v", expr, err)
	}

	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		texts = append(texts, strings.TrimSpace(n.InnerText()))
	}
	return texts, nil
}

func get(ctx context.Context, env *Environment, origin, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, failure.Configuration(origin, "invalid url %q: %v", rawURL, err)
	}

	resp, err := env.httpClient().Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, failure.Timeout(origin, err, "no response from %s", rawURL)
		}
		return nil, failure.Probe(origin, err, "no response from %s", rawURL)
	}
	return resp, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func validateURL(origin, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return failure.Configuration(origin, "invalid url %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return failure.Configuration(origin, "url %q must use http or https", raw)
	}
	if u.Host == "" {
		return failure.Configuration(origin, "url %q has no host", raw)
	}
	return nil
}
