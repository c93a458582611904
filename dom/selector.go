package dom

import (
	"regexp"
	"strconv"
	"strings"
)

// MatchPolicy says how an attribute value is turned into a selector filter.
type MatchPolicy int

const (
	// MatchValue matches the value exactly, or by substring when the value
	// cannot be quoted safely. An empty value becomes a presence filter.
	MatchValue MatchPolicy = iota
	// MatchPresence only requires the attribute to exist.
	MatchPresence
)

// AttributeRule is one row of the selector attribute table.
type AttributeRule struct {
	Policy MatchPolicy
	// Dynamic rules apply only when dynamic attributes are enabled.
	Dynamic bool
}

// SelectorAttributes lists every attribute that may appear in a
// synthesized selector. class is handled separately.
var SelectorAttributes = map[string]AttributeRule{
	"id":               {Policy: MatchValue},
	"name":             {Policy: MatchValue},
	"type":             {Policy: MatchValue},
	"placeholder":      {Policy: MatchValue},
	"aria-label":       {Policy: MatchValue},
	"aria-labelledby":  {Policy: MatchValue},
	"aria-describedby": {Policy: MatchValue},
	"role":             {Policy: MatchValue},
	"for":              {Policy: MatchValue},
	"autocomplete":     {Policy: MatchValue},
	"required":         {Policy: MatchPresence},
	"readonly":         {Policy: MatchPresence},
	"alt":              {Policy: MatchValue},
	"title":            {Policy: MatchValue},
	"src":              {Policy: MatchValue},
	"href":             {Policy: MatchValue},
	"target":           {Policy: MatchValue},
	"data-id":          {Policy: MatchValue, Dynamic: true},
	"data-qa":          {Policy: MatchValue, Dynamic: true},
	"data-cy":          {Policy: MatchValue, Dynamic: true},
	"data-testid":      {Policy: MatchValue, Dynamic: true},
}

// unsafeValueChars cannot be placed inside an exact-match string reliably.
// Control characters are unsafe as well.
const unsafeValueChars = "\"'<>`\n\r\t"

var (
	classTokenRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)
	attrNameRe   = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_:.-]*$`)
)

// SynthesizeSelector builds a CSS selector for n from its structural path,
// its valid class tokens and its allowlisted attributes. It always returns
// a usable selector; when the path cannot be converted it falls back to
// FallbackSelector.
func SynthesizeSelector(n *Node, includeDynamic bool) string {
	if n == nil {
		return "*"
	}
	css := CSSFromPath(n.XPath)
	if css == "" {
		return FallbackSelector(n)
	}

	var sb strings.Builder
	sb.WriteString(css)

	for _, a := range n.Attributes {
		if a.Name != "class" {
			continue
		}
		for _, token := range strings.Fields(a.Value) {
			if classTokenRe.MatchString(token) {
				sb.WriteString(".")
				sb.WriteString(token)
			}
		}
	}

	for _, a := range n.Attributes {
		rule, ok := SelectorAttributes[a.Name]
		if !ok || (rule.Dynamic && !includeDynamic) {
			continue
		}
		if !attrNameRe.MatchString(a.Name) {
			continue
		}
		sb.WriteString(attributeFilter(a, rule))
	}
	return sb.String()
}

// FallbackSelector is the coarse tag+index selector. It is not unique
// but is always syntactically valid.
func FallbackSelector(n *Node) string {
	tag := "*"
	if n != nil && classTokenRe.MatchString(n.TagName) {
		tag = n.TagName
	}
	if n == nil || n.HighlightIndex == nil {
		return tag
	}
	return tag + "[highlight_index='" + strconv.Itoa(*n.HighlightIndex) + "']"
}

func attributeFilter(a Attribute, rule AttributeRule) string {
	name := strings.ReplaceAll(a.Name, ":", `\:`)
	switch {
	case rule.Policy == MatchPresence || a.Value == "":
		return "[" + name + "]"
	case unsafeValue(a.Value):
		// The collapsed form is only usable while it still occurs in the value.
		sub := strings.Join(strings.Fields(a.Value), " ")
		if sub == "" || !strings.Contains(a.Value, sub) {
			sub = a.Value
		}
		return "[" + name + `*="` + escapeCSSString(sub) + `"]`
	default:
		return "[" + name + `="` + escapeCSSString(a.Value) + `"]`
	}
}

func unsafeValue(v string) bool {
	return strings.ContainsAny(v, unsafeValueChars) || strings.IndexFunc(v, isControl) >= 0
}

func isControl(r rune) bool { return r < 0x20 || r == 0x7f }

// escapeCSSString escapes s for use inside a double-quoted CSS string.
// Control characters become hex escapes, so LF is written as `\a `.
func escapeCSSString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\\' || r == '"':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case isControl(r):
			sb.WriteByte('\\')
			sb.WriteString(strconv.FormatInt(int64(r), 16))
			sb.WriteByte(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
