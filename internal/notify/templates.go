package notify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"lectern/internal/services"
)

// Priorities order drain delivery; lower drains first.
const (
	PriorityHigh   = 1
	PriorityNormal = 2
	PriorityLow    = 3
)

// Template is a named notification layout. Bodies support {{var}}
// substitution and {{#if var}}...{{/if}} blocks that render only when the
// variable is non-empty. Templates with Dedup set suppress repeats of the
// same recipient and variables inside the store's dedup window; lifecycle
// templates leave it unset so every job event is delivered.
type Template struct {
	Key      string
	Subject  string
	Body     string
	Priority int
	Tags     []string
	Dedup    bool
}

// Built-in templates for pipeline events.
var builtinTemplates = []Template{
	{
		Key:      "job_completed",
		Subject:  "Lectern - Processing Complete",
		Body:     "Finished processing {{title}}.{{#if duration}}\nAudio length: {{duration}}.{{/if}}{{#if provider}}\nTranscribed by {{provider}}.{{/if}}",
		Priority: PriorityNormal,
		Tags:     []string{"lectern", "job", "completed"},
	},
	{
		Key:      "job_failed",
		Subject:  "Lectern - Processing Failed",
		Body:     "Processing failed for {{title}}.{{#if stage}}\nStage: {{stage}}.{{/if}}{{#if reason}}\nReason: {{reason}}.{{/if}}",
		Priority: PriorityHigh,
		Tags:     []string{"lectern", "job", "failed"},
	},
	{
		Key:      "cache_hit",
		Subject:  "Lectern - Result Reused",
		Body:     "Served {{title}} from the result cache.",
		Priority: PriorityLow,
		Tags:     []string{"lectern", "cache", "reused"},
	},
	{
		Key:      "quota_warning",
		Subject:  "Lectern - Quota Warning",
		Body:     "Provider {{provider}} is at {{usage}} of {{limit}} in the current window.",
		Priority: PriorityHigh,
		Tags:     []string{"lectern", "quota", "warning"},
		Dedup:    true,
	},
	{
		Key:      "test",
		Subject:  "Lectern - Test",
		Body:     "Notification system test.",
		Priority: PriorityLow,
		Tags:     []string{"lectern", "test"},
	},
}

// Registry resolves template keys to templates.
type Registry struct {
	templates map[string]Template
}

// NewRegistry returns a registry seeded with the built-in templates.
func NewRegistry() *Registry {
	registry := &Registry{templates: make(map[string]Template, len(builtinTemplates))}
	for _, template := range builtinTemplates {
		registry.templates[template.Key] = template
	}
	return registry
}

// Register adds or replaces a template.
func (r *Registry) Register(template Template) {
	r.templates[template.Key] = template
}

// Lookup returns the template for a key.
func (r *Registry) Lookup(key string) (Template, error) {
	template, ok := r.templates[key]
	if !ok {
		return Template{}, services.Wrap(services.ErrTemplateNotFound, "notify", "lookup", fmt.Sprintf("no template %q", key), nil)
	}
	return template, nil
}

// Render produces the subject and body with vars substituted. Unknown
// variables render as empty strings.
func (t Template) Render(vars map[string]string) (subject, body string) {
	return renderText(t.Subject, vars), renderText(t.Body, vars)
}

var (
	ifBlockPattern = regexp.MustCompile(`(?s)\{\{#if\s+([a-zA-Z0-9_]+)\}\}(.*?)\{\{/if\}\}`)
	varPattern     = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)
)

func renderText(text string, vars map[string]string) string {
	text = ifBlockPattern.ReplaceAllStringFunc(text, func(block string) string {
		match := ifBlockPattern.FindStringSubmatch(block)
		if strings.TrimSpace(vars[match[1]]) == "" {
			return ""
		}
		return match[2]
	})
	return varPattern.ReplaceAllStringFunc(text, func(ref string) string {
		match := varPattern.FindStringSubmatch(ref)
		return vars[match[1]]
	})
}

// HashVars fingerprints a variable set for deduplication. Key order does not
// affect the hash.
func HashVars(templateKey string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	hasher := sha256.New()
	hasher.Write([]byte(templateKey))
	for _, key := range keys {
		hasher.Write([]byte{0})
		hasher.Write([]byte(key))
		hasher.Write([]byte{0})
		hasher.Write([]byte(vars[key]))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
