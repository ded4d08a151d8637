// Package detector implements the tool-call detector (component 4.A): a
// pure classifier that looks at a buffered text fragment and decides
// whether it is definitely not, might be, or definitely is a tool call,
// without ever allocating more than the input it was given.
package detector

import "strings"

// ToolCallMarker wraps one or more tool invocations the model was
// instructed to emit. Bare tool-root elements (no wrapper) are also
// recognized.
const ToolCallMarker = "<toolbridge:calls>"

// nonToolTags is the empirical list of HTML-ish root tags that must never
// be buffered as a potential tool call, since real-world markdown/HTML
// output commonly opens with one of these. Kept as an overridable package
// variable, not a config field or inline literal, per spec.md §9's "keep it
// extensible via configuration".
var nonToolTags = []string{
	"div", "span", "p", "h1", "h2", "h3", "h4", "h5", "h6",
	"style", "script", "html", "body", "form", "ul", "ol", "li",
	"table", "tr", "td", "th", "a", "img", "br", "hr", "pre", "code",
}

// Result is the detector's verdict for one buffer.
type Result struct {
	RootTagName    string
	IsPotential    bool
	MightBeToolCall bool
	IsCompletedXml bool
}

// Detect classifies buf against knownTools (tool names declared on the
// request). It never mutates buf and never allocates more than a handful
// of substrings.
func Detect(buf string, knownTools map[string]bool) Result {
	trimmed := strings.TrimLeft(buf, " \t\r\n")
	if trimmed == "" {
		return Result{}
	}

	if trimmed[0] == '<' {
		if tag := leadingTagName(trimmed); tag != "" && isNonToolTag(tag) {
			return Result{RootTagName: tag, MightBeToolCall: false}
		}
	}

	if name, ok := findKnownToolOpenTag(buf, knownTools); ok {
		closed := hasClosingTag(buf, name)
		return Result{
			RootTagName:    name,
			IsPotential:    true,
			MightBeToolCall: true,
			IsCompletedXml: closed,
		}
	}

	if strings.Contains(buf, ToolCallMarker) {
		return Result{MightBeToolCall: true, IsPotential: true}
	}

	// A wrapper marker cut off at the end of the buffer ("<toolbridge:ca")
	// may still complete as more bytes arrive.
	if i := strings.LastIndexByte(buf, '<'); i >= 0 {
		if tail := buf[i:]; len(tail) > 1 && strings.HasPrefix(ToolCallMarker, tail) {
			return Result{MightBeToolCall: true, IsPotential: true}
		}
	}

	if hasKnownToolPrefix(buf, knownTools) {
		return Result{MightBeToolCall: true, IsPotential: true}
	}

	return Result{MightBeToolCall: false}
}

// leadingTagName returns the tag name of the first element in s, assuming s
// starts with '<'. Returns "" if no well-formed opening tag is found.
func leadingTagName(s string) string {
	if len(s) < 2 || s[0] != '<' {
		return ""
	}
	i := 1
	for i < len(s) && s[i] != ' ' && s[i] != '>' && s[i] != '\t' && s[i] != '\n' && s[i] != '/' {
		i++
	}
	name := s[1:i]
	return localName(name)
}

// localName strips a namespace prefix ("toolbridge:calls" -> "calls").
func localName(name string) string {
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func isNonToolTag(tag string) bool {
	lower := strings.ToLower(tag)
	for _, t := range nonToolTags {
		if t == lower {
			return true
		}
	}
	return false
}

// findKnownToolOpenTag scans buf for the first "<name" or "<ns:name" where
// name's local part matches a known tool, returning that local name.
func findKnownToolOpenTag(buf string, knownTools map[string]bool) (string, bool) {
	for i := 0; i < len(buf); i++ {
		if buf[i] != '<' {
			continue
		}
		rest := buf[i+1:]
		if rest == "" || rest[0] == '/' || rest[0] == '!' || rest[0] == '?' {
			continue
		}
		j := 0
		for j < len(rest) && rest[j] != ' ' && rest[j] != '>' && rest[j] != '\t' && rest[j] != '\n' && rest[j] != '/' {
			j++
		}
		name := localName(rest[:j])
		if knownTools[name] {
			return name, true
		}
	}
	return "", false
}

func hasClosingTag(buf, name string) bool {
	return strings.Contains(buf, "</"+name+">")
}

// hasKnownToolPrefix reports whether buf contains a '<' followed by a
// strict, non-empty prefix of some known tool name — the "might still
// become a tool call as more bytes arrive" case.
func hasKnownToolPrefix(buf string, knownTools map[string]bool) bool {
	for i := 0; i < len(buf); i++ {
		if buf[i] != '<' {
			continue
		}
		rest := buf[i+1:]
		j := 0
		for j < len(rest) && rest[j] != ' ' && rest[j] != '>' && rest[j] != '\t' && rest[j] != '\n' {
			j++
		}
		frag := localName(rest[:j])
		if frag == "" {
			continue
		}
		for tool := range knownTools {
			if len(frag) < len(tool) && strings.HasPrefix(tool, frag) {
				return true
			}
		}
	}
	return false
}
