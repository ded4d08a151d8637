package toolprompt

import (
	"strings"

	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
)

// DefaultReinjectionMessageCount and DefaultReinjectionTokenCount are the
// thresholds spec.md §4.C names as defaults; callers normally pass the
// configured values instead.
const (
	DefaultReinjectionMessageCount = 3
	DefaultReinjectionTokenCount   = 1000
	ReinjectionLookback            = 6
)

// Inject returns messages with the injection policy applied, leaving the
// input slice unmodified: if the first system message already carries the
// marker, nothing changes; otherwise the rendered block is folded into an
// existing system message or prepended as a new one.
func Inject(messages []toolbridge.Message, tools []toolbridge.Tool) []toolbridge.Message {
	if len(tools) == 0 {
		return messages
	}

	sysIdx := firstSystemIndex(messages)
	if sysIdx >= 0 && containsMarker(messages[sysIdx].Content) {
		return messages
	}

	block := Render(tools)

	if sysIdx >= 0 {
		out := append([]toolbridge.Message(nil), messages...)
		out[sysIdx].Content = out[sysIdx].Content + "\n\n---\n\n" + block + ExclusivityNotice
		return out
	}

	preamble := "You are a helpful assistant with access to tools.\n\n"
	newMsg := toolbridge.Message{Role: toolbridge.RoleSystem, Content: preamble + block}
	out := make([]toolbridge.Message, 0, len(messages)+1)
	out = append(out, newMsg)
	out = append(out, messages...)
	return out
}

// estimateTokens approximates token count as ceil(chars/4), per spec.md
// §4.C.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// MaybeReinject inserts a short reminder message when the conversation has
// drifted far enough from the last system message, per the message-count /
// token-count thresholds, unless one of the last ReinjectionLookback
// messages already carries a reminder marker. preferredRole is the
// configured TOOL_REINJECTION_TYPE; toolbridge.RoleUser always wins,
// since the operator asked for it explicitly, while toolbridge.RoleSystem
// (the default) still defers to the multiple-system-message heuristic
// below, which demotes to user to avoid piling up system messages some
// backends reject.
func MaybeReinject(messages []toolbridge.Message, messageThreshold, tokenThreshold int, preferredRole toolbridge.Role) []toolbridge.Message {
	sysIdx := lastSystemIndex(messages)
	if sysIdx < 0 {
		return messages
	}

	since := messages[sysIdx+1:]
	if len(since) <= messageThreshold && estimateCharTokens(since) <= tokenThreshold {
		return messages
	}

	lookback := messages
	if len(lookback) > ReinjectionLookback {
		lookback = lookback[len(lookback)-ReinjectionLookback:]
	}
	for _, m := range lookback {
		if strings.Contains(m.Content, ReminderMarker) {
			return messages
		}
	}

	role := preferredRole
	if role == "" {
		role = toolbridge.RoleSystem
	}
	if role == toolbridge.RoleSystem && countSystemMessages(messages) > 1 {
		role = toolbridge.RoleUser
	}

	reminder := toolbridge.Message{
		Role:    role,
		Content: ReminderMarker + "\nReminder: use the tool-call XML wrapper shown earlier when invoking a tool.",
	}

	out := append([]toolbridge.Message(nil), messages...)
	out = append(out, reminder)
	return out
}

func estimateCharTokens(messages []toolbridge.Message) int {
	total := 0
	for _, m := range messages {
		total += estimateTokens(m.Content)
	}
	return total
}

func containsMarker(content string) bool {
	return strings.Contains(content, InstructionMarker) || strings.Contains(content, ReminderMarker)
}

func firstSystemIndex(messages []toolbridge.Message) int {
	for i, m := range messages {
		if m.Role == toolbridge.RoleSystem {
			return i
		}
	}
	return -1
}

func lastSystemIndex(messages []toolbridge.Message) int {
	idx := -1
	for i, m := range messages {
		if m.Role == toolbridge.RoleSystem {
			idx = i
		}
	}
	return idx
}

func countSystemMessages(messages []toolbridge.Message) int {
	n := 0
	for _, m := range messages {
		if m.Role == toolbridge.RoleSystem {
			n++
		}
	}
	return n
}
