// Package templates renders email templates with placeholder,
// conditional and loop substitution.
//
// Grammar:
//
//	{{name}}                     substitution
//	{{#if name}}...{{/if}}       emitted iff name is present, non-empty
//	                             and not the literal "false"
//	{{#each list}}...{{/each}}   iterated via the "{list}_count" integer;
//	                             fields resolve through "{list}_{i}_{field}"
//
// Identifiers are word characters. Rendering is deterministic and the
// engine is stateless and safe for concurrent use.
package templates

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	eachRegex        = regexp.MustCompile(`(?s)\{\{#each\s+(\w+)\}\}(.*?)\{\{/each\}\}`)
	ifRegex          = regexp.MustCompile(`(?s)\{\{#if\s+(\w+)\}\}(.*?)\{\{/if\}\}`)
	placeholderRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)
	unresolvedRegex  = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	htmlTagRegex     = regexp.MustCompile(`<\s*(/?)\s*([a-zA-Z][a-zA-Z0-9]*)[^<>]*?(/?)>`)
)

// Void HTML elements never have a closing tag.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Data resolves template identifiers against a template_data JSON object.
type Data struct {
	raw string
}

// DataFromJSON wraps a template_data JSON document. An empty document is
// valid and resolves nothing.
func DataFromJSON(raw string) Data {
	return Data{raw: raw}
}

// Lookup resolves a key to its string form. Exact match is preferred; a
// case-insensitive scan is the fallback.
func (d Data) Lookup(key string) (string, bool) {
	if d.raw == "" {
		return "", false
	}
	if v := gjson.Get(d.raw, key); v.Exists() {
		return v.String(), true
	}
	var found string
	var ok bool
	gjson.Parse(d.raw).ForEach(func(k, v gjson.Result) bool {
		if strings.EqualFold(k.String(), key) {
			found = v.String()
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// Count returns the "{list}_count" integer, or 0 when absent.
func (d Data) Count(list string) int {
	v, ok := d.Lookup(list + "_count")
	if !ok {
		return 0
	}
	return int(gjson.Parse(v).Int())
}

// Engine renders and validates templates.
type Engine struct{}

// NewEngine creates a template engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Render applies loops, then conditionals, then substitutions. Missing
// keys leave their tokens intact so validation can surface them.
func (e *Engine) Render(text string, d Data) string {
	out := e.renderLoops(text, d)
	out = e.renderConditionals(out, d)
	return e.renderPlaceholders(out, d)
}

func (e *Engine) renderLoops(text string, d Data) string {
	return eachRegex.ReplaceAllStringFunc(text, func(match string) string {
		groups := eachRegex.FindStringSubmatch(match)
		list, body := groups[1], groups[2]
		count := d.Count(list)
		if count <= 0 {
			return ""
		}
		var sb strings.Builder
		for i := 0; i < count; i++ {
			sb.WriteString(placeholderRegex.ReplaceAllStringFunc(body, func(token string) string {
				field := placeholderRegex.FindStringSubmatch(token)[1]
				if v, ok := d.Lookup(fmt.Sprintf("%s_%d_%s", list, i, field)); ok {
					return v
				}
				return token
			}))
		}
		return sb.String()
	})
}

func (e *Engine) renderConditionals(text string, d Data) string {
	return ifRegex.ReplaceAllStringFunc(text, func(match string) string {
		groups := ifRegex.FindStringSubmatch(match)
		key, body := groups[1], groups[2]
		v, ok := d.Lookup(key)
		if !ok || v == "" || strings.EqualFold(v, "false") {
			return ""
		}
		return body
	})
}

func (e *Engine) renderPlaceholders(text string, d Data) string {
	return placeholderRegex.ReplaceAllStringFunc(text, func(token string) string {
		name := placeholderRegex.FindStringSubmatch(token)[1]
		if v, ok := d.Lookup(name); ok {
			return v
		}
		return token
	})
}

// Validate fails when unresolved tokens remain after rendering, and, for
// HTML bodies, when non-void tag open and close counts do not match.
func (e *Engine) Validate(rendered string, isHTML bool) error {
	if tokens := unresolvedRegex.FindAllString(rendered, -1); len(tokens) > 0 {
		return fmt.Errorf("unresolved template tokens remain: %s", strings.Join(dedupe(tokens), ", "))
	}
	if isHTML {
		return validateTagBalance(rendered)
	}
	return nil
}

func validateTagBalance(body string) error {
	counts := make(map[string]int)
	for _, m := range htmlTagRegex.FindAllStringSubmatch(body, -1) {
		closing, name, selfClosed := m[1] == "/", strings.ToLower(m[2]), m[3] == "/"
		if voidTags[name] || selfClosed {
			continue
		}
		if closing {
			counts[name]--
		} else {
			counts[name]++
		}
	}
	for name, n := range counts {
		if n != 0 {
			return fmt.Errorf("unbalanced html tag <%s>", name)
		}
	}
	return nil
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
