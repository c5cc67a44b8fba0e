package detection

import (
	"fmt"
	"regexp"

	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/mitchellh/mapstructure"
)

// maxPatternLength bounds rule size so a misconfigured custom pattern cannot
// blow up scan time. Go's regexp engine is linear in input, so the per-request
// cost is bounded by pattern count times input size.
const maxPatternLength = 2048

// Rule is one compiled detection rule. Rules are immutable after Load and
// evaluated in declaration order: the first match determines the reported
// kind and severity for a field.
type Rule struct {
	Name        string
	Kind        attempt.Kind
	Severity    attempt.Severity
	Pattern     *regexp.Regexp
	Description string
}

type ruleSpec struct {
	name        string
	kind        attempt.Kind
	severity    attempt.Severity
	pattern     string
	description string
}

// Built-in rules anchor on syntactic danger markers (statement terminators
// followed by DDL/DML keywords, shell metacharacters followed by command
// tokens, UNION+SELECT co-occurrence) rather than bare special characters,
// so punctuation in names, emails, phone numbers and URLs stays clean.
var builtinRules = []ruleSpec{
	{
		name:        "sql_statement_terminator",
		kind:        attempt.KindSQLInjection,
		severity:    attempt.SeverityCritical,
		pattern:     `(?i)['"]\s*;\s*(drop|delete|truncate|alter|create|insert|update|exec|execute|grant|revoke)\b`,
		description: "quote-terminated SQL statement",
	},
	{
		name:        "union_select",
		kind:        attempt.KindUnionSelect,
		severity:    attempt.SeverityHigh,
		pattern:     `(?i)\bunion(\s+all)?\s+select\b`,
		description: "UNION SELECT data exfiltration",
	},
	{
		name:        "sql_tautology",
		kind:        attempt.KindSQLInjection,
		severity:    attempt.SeverityHigh,
		pattern:     `(?i)['"]\s*(or|and)\s+['"]?\d+['"]?\s*=\s*['"]?\d+`,
		description: "always-true SQL condition after quote",
	},
	{
		name:        "sql_comment_terminator",
		kind:        attempt.KindSQLInjection,
		severity:    attempt.SeverityMedium,
		pattern:     `(?i)['"]\s*(--|#|/\*)`,
		description: "SQL comment following a closing quote",
	},
	{
		name:        "shell_command_chain",
		kind:        attempt.KindCommandInjection,
		severity:    attempt.SeverityCritical,
		pattern:     `(?i)(;|&&?|\|\|?)\s*(rm|curl|wget|nc|netcat|bash|sh|zsh|cat|chmod|chown|sudo|mkfifo|python|perl|ruby)(\s|$)`,
		description: "shell metacharacter followed by a command token",
	},
	{
		name:        "shell_substitution",
		kind:        attempt.KindCommandInjection,
		severity:    attempt.SeverityHigh,
		pattern:     "\\$\\([^)]*\\)|`[^`]+`",
		description: "command substitution",
	},
	{
		name:        "path_traversal",
		kind:        attempt.KindOther,
		severity:    attempt.SeverityMedium,
		pattern:     `(\.\./){2,}`,
		description: "repeated parent-directory traversal",
	},
	{
		name:        "timing_probe",
		kind:        attempt.KindOther,
		severity:    attempt.SeverityMedium,
		pattern:     `(?i)\bwaitfor\s+delay\b|\bbenchmark\s*\(|\bpg_sleep\s*\(|\bsleep\s*\(\s*\d+\s*\)`,
		description: "time-based blind injection probe",
	},
	{
		name:        "null_byte",
		kind:        attempt.KindOther,
		severity:    attempt.SeverityLow,
		pattern:     "%00|\x00",
		description: "null byte in input",
	},
}

// Catalog is the immutable, ordered rule set used by the Detector.
type Catalog struct {
	rules     []Rule
	hasCustom bool
}

// CustomPattern is an operator-supplied rule appended after the built-ins.
type CustomPattern struct {
	Name        string `mapstructure:"name"`
	Pattern     string `mapstructure:"pattern"`
	Kind        string `mapstructure:"kind"`
	Severity    string `mapstructure:"severity"`
	Description string `mapstructure:"description"`
}

// NewCatalog compiles the built-in rules plus any custom patterns. Any
// compilation failure is returned so the process can refuse to start with
// an incomplete catalog.
func NewCatalog(customPatterns []CustomPattern) (*Catalog, error) {
	rules := make([]Rule, 0, len(builtinRules)+len(customPatterns))

	for _, spec := range builtinRules {
		compiled, err := compileRule(spec.name, spec.pattern)
		if err != nil {
			return nil, err
		}
		rules = append(rules, Rule{
			Name:        spec.name,
			Kind:        spec.kind,
			Severity:    spec.severity,
			Pattern:     compiled,
			Description: spec.description,
		})
	}

	for _, custom := range customPatterns {
		rule, err := buildCustomRule(custom)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return &Catalog{rules: rules, hasCustom: len(customPatterns) > 0}, nil
}

// DecodeCustomPatterns decodes loosely-typed settings (e.g. straight out of
// a YAML config tree) into custom patterns, rejecting unknown fields.
func DecodeCustomPatterns(settings []map[string]interface{}) ([]CustomPattern, error) {
	patterns := make([]CustomPattern, 0, len(settings))
	for i, raw := range settings {
		var p CustomPattern
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &p,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, fmt.Errorf("invalid custom pattern at index %d: %w", i, err)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func buildCustomRule(custom CustomPattern) (Rule, error) {
	if custom.Name == "" {
		return Rule{}, fmt.Errorf("custom pattern name cannot be empty")
	}
	kind := attempt.Kind(custom.Kind)
	switch kind {
	case attempt.KindSQLInjection, attempt.KindCommandInjection, attempt.KindUnionSelect:
	case "":
		kind = attempt.KindOther
	default:
		kind = attempt.KindOther
	}
	severity := attempt.Severity(custom.Severity)
	if custom.Severity == "" {
		severity = attempt.SeverityMedium
	}
	if !severity.Valid() {
		return Rule{}, fmt.Errorf("custom pattern '%s': invalid severity '%s'", custom.Name, custom.Severity)
	}
	compiled, err := compileRule(custom.Name, custom.Pattern)
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		Name:        custom.Name,
		Kind:        kind,
		Severity:    severity,
		Pattern:     compiled,
		Description: custom.Description,
	}, nil
}

func compileRule(name, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("rule '%s': pattern cannot be empty", name)
	}
	if len(pattern) > maxPatternLength {
		return nil, fmt.Errorf("rule '%s': pattern exceeds %d bytes", name, maxPatternLength)
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rule '%s': invalid regex pattern: %w", name, err)
	}
	return compiled, nil
}

// Rules returns the catalog in declaration order. Callers must not mutate
// the returned slice.
func (c *Catalog) Rules() []Rule {
	return c.rules
}

func (c *Catalog) Len() int {
	return len(c.rules)
}

// HasCustomRules reports whether operator-supplied patterns are present.
// The detector cannot assume those anchor on metacharacters, so its char
// pre-filter is disabled when this is true.
func (c *Catalog) HasCustomRules() bool {
	return c.hasCustom
}
