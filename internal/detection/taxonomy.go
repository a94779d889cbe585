package detection

import (
	"fmt"
	"regexp"
)

// Signature is one detection pattern. Source is kept verbatim because match
// confidence is derived from its length.
type Signature struct {
	Source  string
	Pattern *regexp.Regexp
}

// AttackCategory groups signatures that indicate the same kind of probe.
type AttackCategory struct {
	ID         string
	Label      string
	Severity   Severity
	Signatures []Signature
}

// Taxonomy is the immutable, ordered catalog of attack categories.
type Taxonomy struct {
	categories []AttackCategory
}

// CategorySpec describes a category before its signatures are compiled.
type CategorySpec struct {
	ID       string
	Label    string
	Severity Severity
	Patterns []string
}

// NewTaxonomy compiles the given specs case-insensitively. Every category
// must carry at least one pattern and a valid severity.
func NewTaxonomy(specs []CategorySpec) (*Taxonomy, error) {
	t := &Taxonomy{categories: make([]AttackCategory, 0, len(specs))}
	seen := make(map[string]bool, len(specs))

	for _, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("category without id")
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("duplicate category %q", spec.ID)
		}
		if len(spec.Patterns) == 0 {
			return nil, fmt.Errorf("category %q has no signatures", spec.ID)
		}
		if !spec.Severity.Valid() {
			return nil, fmt.Errorf("category %q has invalid severity %d", spec.ID, spec.Severity)
		}
		seen[spec.ID] = true

		category := AttackCategory{
			ID:       spec.ID,
			Label:    spec.Label,
			Severity: spec.Severity,
		}
		for _, src := range spec.Patterns {
			re, err := regexp.Compile("(?i)" + src)
			if err != nil {
				return nil, fmt.Errorf("category %q: compile %q: %w", spec.ID, src, err)
			}
			category.Signatures = append(category.Signatures, Signature{Source: src, Pattern: re})
		}
		t.categories = append(t.categories, category)
	}

	return t, nil
}

// Categories returns the catalog in classification order.
func (t *Taxonomy) Categories() []AttackCategory {
	out := make([]AttackCategory, len(t.categories))
	copy(out, t.categories)
	return out
}

// DefaultCategorySpecs is the built-in IoT honeypot catalog. Order matters:
// on equal confidence the earlier category wins.
var DefaultCategorySpecs = []CategorySpec{
	{
		ID:       "path_traversal",
		Label:    "Path Traversal",
		Severity: SeverityCritical,
		Patterns: []string{
			`(\.\./|\.\.\\|\.\.%2f|%2e%2e%2f|%2e%2e/)`,
			`\.\./`,
			`\.\.\\`,
			`/etc/passwd`,
			`/etc/shadow`,
			`/bin/sh`,
		},
	},
	{
		ID:       "admin_scanning",
		Label:    "Reconnaissance",
		Severity: SeverityHigh,
		Patterns: []string{`/admin`, `/login`, `/config`, `/setup`, `/console`},
	},
	{
		ID:       "cgi_scanning",
		Label:    "Service Discovery",
		Severity: SeverityMedium,
		Patterns: []string{`cgi-bin`, `\.cgi`, `\.php`, `\.asp`, `\.pl`},
	},
	{
		ID:       "wordpress_scanning",
		Label:    "CMS Targeting",
		Severity: SeverityMedium,
		Patterns: []string{`wp-admin`, `wp-login`, `wp-content`, `wp-includes`},
	},
	{
		ID:       "sql_injection",
		Label:    "SQL Injection",
		Severity: SeverityCritical,
		Patterns: []string{
			`SELECT.*FROM`,
			`UNION.*SELECT`,
			`DROP.*TABLE`,
			`OR.*1=1`,
			`INSERT.*INTO`,
			`'\s*or\s*'[^']*'\s*=\s*'`,
			`\b(sleep|benchmark|pg_sleep)\s*\(|waitfor\s+delay`,
		},
	},
	{
		ID:       "iot_common",
		Label:    "IoT Targeting",
		Severity: SeverityHigh,
		Patterns: []string{`/cgi-bin/`, `/boaform/`, `/formLogin`, `/login.cgi`, `/status.json`},
	},
	{
		ID:       "command_injection",
		Label:    "Command Injection",
		Severity: SeverityCritical,
		Patterns: []string{
			`[;|]\s*(ls|cat|whoami|id|uname|pwd|wget|curl|nc|bash|sh)\b`,
			"`[^`]*`",
			`\$\([^)]*\)`,
			`\$\{[^}]*\}`,
			`(&&|%26%26)\s*(whoami|id|cat|ls|wget|curl)\b`,
		},
	},
}

// DefaultTaxonomy compiles DefaultCategorySpecs.
func DefaultTaxonomy() *Taxonomy {
	t, err := NewTaxonomy(DefaultCategorySpecs)
	if err != nil {
		panic(fmt.Sprintf("built-in taxonomy: %v", err))
	}
	return t
}
