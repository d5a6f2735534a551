// Package sanitizer cleans backend-supplied rich text before it is rendered
// in the console or printed to a terminal.
package sanitizer

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer provides HTML sanitization.
type Sanitizer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// New creates a Sanitizer.
func New() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &Sanitizer{
		policy: p,
		strict: bluemonday.StrictPolicy(),
	}
}

// HTML keeps safe user-generated markup.
func (s *Sanitizer) HTML(html string) string {
	return strings.TrimSpace(s.policy.Sanitize(html))
}

// Text strips all markup and collapses whitespace, for terminal output.
func (s *Sanitizer) Text(html string) string {
	return strings.Join(strings.Fields(s.strict.Sanitize(html)), " ")
}
