package stream

import (
	"encoding/json"
	"strconv"

	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
)

// OpenAIEmitter renders a synthesized tool call as the three-chunk
// sequence an OpenAI-shaped streaming client expects: a role-announcing
// chunk, an argument-delta chunk, then a finish_reason="tool_calls"
// chunk.
type OpenAIEmitter struct {
	callID func() string
}

// NewOpenAIEmitter builds an OpenAIEmitter. callID generates the
// tool_call id shared between the assistant's tool_calls[] entry and the
// client's follow-up tool message; pass nil to use a fixed counter.
func NewOpenAIEmitter(callID func() string) *OpenAIEmitter {
	if callID == nil {
		callID = sequentialCallID()
	}
	return &OpenAIEmitter{callID: callID}
}

func (e *OpenAIEmitter) EmitToolCall(call toolbridge.ExtractedToolCall, model string) []toolbridge.GenericStreamChunk {
	id := e.callID()
	args, _ := json.Marshal(call.Arguments)

	roleChunk := toolbridge.GenericStreamChunk{
		Model: model,
		Choices: []toolbridge.Choice{{
			Index: 0,
			Delta: &toolbridge.Message{
				Role: toolbridge.RoleAssistant,
				ToolCalls: []toolbridge.ToolCall{{
					ID:   id,
					Type: "function",
					Function: toolbridge.ToolCallFunction{
						Name: call.Name,
					},
				}},
			},
		}},
	}

	argsChunk := toolbridge.GenericStreamChunk{
		Model: model,
		Choices: []toolbridge.Choice{{
			Index: 0,
			Delta: &toolbridge.Message{
				ToolCalls: []toolbridge.ToolCall{{
					ID: id,
					Function: toolbridge.ToolCallFunction{
						Arguments: string(args),
					},
				}},
			},
		}},
	}

	finishChunk := toolbridge.GenericStreamChunk{
		Model: model,
		Choices: []toolbridge.Choice{{
			Index:        0,
			Delta:        &toolbridge.Message{},
			FinishReason: toolbridge.FinishToolCalls,
		}},
	}

	return []toolbridge.GenericStreamChunk{roleChunk, argsChunk, finishChunk}
}

func (e *OpenAIEmitter) EmitPlainFinish(model string, reason toolbridge.FinishReason, usage *toolbridge.Usage) toolbridge.GenericStreamChunk {
	return toolbridge.GenericStreamChunk{
		Model: model,
		Choices: []toolbridge.Choice{{
			Index:        0,
			Delta:        &toolbridge.Message{},
			FinishReason: reason,
		}},
		Usage: usage,
	}
}

func sequentialCallID() func() string {
	n := 0
	return func() string {
		n++
		return "call_synth_" + strconv.Itoa(n)
	}
}
