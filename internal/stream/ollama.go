package stream

import (
	"encoding/json"

	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
)

// OllamaEmitter renders a synthesized tool call as the single terminal
// NDJSON record an Ollama-shaped streaming client expects: one record
// carrying message.tool_calls, an empty response, and done=true.
type OllamaEmitter struct{}

func NewOllamaEmitter() *OllamaEmitter { return &OllamaEmitter{} }

func (e *OllamaEmitter) EmitToolCall(call toolbridge.ExtractedToolCall, model string) []toolbridge.GenericStreamChunk {
	args, _ := json.Marshal(call.Arguments)
	return []toolbridge.GenericStreamChunk{{
		Model: model,
		Choices: []toolbridge.Choice{{
			Index: 0,
			Delta: &toolbridge.Message{
				Role: toolbridge.RoleAssistant,
				ToolCalls: []toolbridge.ToolCall{{
					Type: "function",
					Function: toolbridge.ToolCallFunction{
						Name:      call.Name,
						Arguments: string(args),
					},
				}},
			},
			FinishReason: toolbridge.FinishToolCalls,
		}},
	}}
}

func (e *OllamaEmitter) EmitPlainFinish(model string, reason toolbridge.FinishReason, usage *toolbridge.Usage) toolbridge.GenericStreamChunk {
	return toolbridge.GenericStreamChunk{
		Model: model,
		Choices: []toolbridge.Choice{{
			Index:        0,
			Delta:        &toolbridge.Message{Role: toolbridge.RoleAssistant},
			FinishReason: reason,
		}},
		Usage: usage,
	}
}
