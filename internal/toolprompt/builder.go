// Package toolprompt renders tool schemas into the XML-protocol system
// prompt (component 4.C) and decides when to inject or re-inject it into a
// converted backend request.
package toolprompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
)

// InstructionMarker and ReminderMarker are the dedup markers: a system
// message containing either is treated as already carrying the protocol
// instructions.
const (
	InstructionMarker = "# TOOL USAGE INSTRUCTIONS"
	ReminderMarker    = "<toolbridge_calls>"
	WrapperTag        = "toolbridge:calls"
)

// Render produces the fixed-template system-prompt block listing every tool
// as "- name: description | params p1*:type, p2:type" (asterisk marks
// required), a minimal example using the first tool, and a short rules
// block.
func Render(tools []toolbridge.Tool) string {
	if len(tools) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintln(&b, InstructionMarker)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "You have access to the following tools. To call one, respond with:")
	fmt.Fprintf(&b, "<%s><tool_name><param>value</param></tool_name></%s>\n\n", WrapperTag, WrapperTag)

	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s | params %s\n", t.Name, t.Description, paramList(t))
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Example:")
	fmt.Fprintln(&b, example(tools[0]))

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Rules:")
	fmt.Fprintln(&b, "- Emit the wrapper element exactly once per response when calling a tool.")
	fmt.Fprintln(&b, "- Only call tools listed above; do not invent new tool names.")
	fmt.Fprintln(&b, "- Do not narrate the call outside the XML element.")

	return b.String()
}

// ExclusivityNotice states that the listed tools are the only ones
// available, appended when instructions are folded into an existing system
// message.
const ExclusivityNotice = "\n\nThese are the only tools available. Do not reference tools not listed above."

func paramList(t toolbridge.Tool) string {
	props, _ := t.ParametersSchema["properties"].(map[string]interface{})
	if len(props) == 0 {
		return "(none)"
	}
	required := map[string]bool{}
	if reqList, ok := t.ParametersSchema["required"].([]interface{}); ok {
		for _, r := range reqList {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	} else if reqList, ok := t.ParametersSchema["required"].([]string); ok {
		for _, s := range reqList {
			required[s] = true
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		typ := "any"
		if m, ok := props[name].(map[string]interface{}); ok {
			if t, ok := m["type"].(string); ok {
				typ = t
			}
		}
		mark := ""
		if required[name] {
			mark = "*"
		}
		parts = append(parts, fmt.Sprintf("%s%s:%s", name, mark, typ))
	}
	return strings.Join(parts, ", ")
}

func example(t toolbridge.Tool) string {
	props, _ := t.ParametersSchema["properties"].(map[string]interface{})
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var inner strings.Builder
	for _, name := range names {
		fmt.Fprintf(&inner, "<%s>example</%s>", name, name)
	}
	return fmt.Sprintf("<%s><%s>%s</%s></%s>", WrapperTag, t.Name, inner.String(), t.Name, WrapperTag)
}
