// Package sanitize provides HTML sanitization for user-generated content.
// Journal entry bodies are rich text produced by the Quill editor and stored
// as HTML. Uses bluemonday to strip dangerous HTML (script tags, event
// handlers, javascript: URLs) while preserving the formatting Quill emits.
package sanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday policy for sanitizing entry HTML.
// Initialized once via sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared sanitization policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()

		// Quill expresses alignment, indentation, fonts, and code blocks as
		// ql-* classes on block elements rather than inline styles.
		policy.AllowAttrs("class").OnElements("p", "span", "li", "ol", "ul", "pre", "blockquote", "h1", "h2", "h3")

		// Inline color/background spans from the editor toolbar.
		policy.AllowAttrs("style").OnElements("span", "p")

		// Ordered lists carry data-list to distinguish bullets from checks.
		policy.AllowAttrs("data-list").OnElements("li")
	})
	return policy
}

// HTML sanitizes user-generated HTML content by stripping dangerous elements
// (script, iframe, event handlers, javascript: URLs) while preserving safe
// formatting tags.
//
// This MUST be called on all user-provided HTML before storing it in the
// database. The sanitized output is safe for rendering in browsers via
// innerHTML or the editor's paste path.
func HTML(input string) string {
	if input == "" {
		return ""
	}
	return getPolicy().Sanitize(input)
}
