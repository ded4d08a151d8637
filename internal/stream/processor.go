// Package stream implements the per-request streaming state machines
// (component 4.F) that sit between a backend's stream of generic chunks
// and a client, buffering content that might be a synthesized XML tool
// call and emitting a tool-call chunk sequence shaped for the client's
// own wire format once the call is complete.
package stream

import (
	"github.com/Oct4Pie/toolbridge/internal/detector"
	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
	"github.com/Oct4Pie/toolbridge/internal/xmlparser"
)

// Emitter renders the terminal events of a synthesized tool call into the
// chunk sequence a particular client format expects. OpenAI clients want
// a short burst of chunks (role, then arguments, then a finish chunk);
// Ollama clients want a single terminal record.
type Emitter interface {
	EmitToolCall(call toolbridge.ExtractedToolCall, model string) []toolbridge.GenericStreamChunk
	EmitPlainFinish(model string, reason toolbridge.FinishReason, usage *toolbridge.Usage) toolbridge.GenericStreamChunk
}

// Processor holds the single-owned state for one in-flight stream. It is
// not safe for concurrent use; each HTTP request constructs its own.
type Processor struct {
	state      toolbridge.StreamProcessorState
	knownTools map[string]bool
	maxBuffer  int
	emitter    Emitter
	truncated  bool
}

// New builds a Processor for one stream. maxBuffer bounds how much
// content is held while a potential tool call is buffered; once
// exceeded, the buffer is tail-truncated and flushed as plain text
// (spec.md's stream-buffer-truncation boundary property).
func New(model string, knownTools map[string]bool, includeUsage bool, maxBuffer int, emitter Emitter) *Processor {
	return &Processor{
		state: toolbridge.StreamProcessorState{
			State:        toolbridge.StatePassthrough,
			Model:        model,
			IncludeUsage: includeUsage,
		},
		knownTools: knownTools,
		maxBuffer:  maxBuffer,
		emitter:    emitter,
	}
}

// Truncated reports whether the content buffer was ever tail-truncated
// during this stream, for metrics.
func (p *Processor) Truncated() bool { return p.truncated }

// Feed consumes one backend-origin generic chunk and returns zero or more
// chunks ready to hand to the client-format encoder. Once the processor
// reaches StateClosed, Feed returns nil for every further chunk.
func (p *Processor) Feed(chunk toolbridge.GenericStreamChunk) []toolbridge.GenericStreamChunk {
	if p.state.State == toolbridge.StateClosed {
		return nil
	}
	if chunk.Usage != nil {
		p.state.PromptTokens = chunk.Usage.PromptTokens
		p.state.CompletionTokens = chunk.Usage.CompletionTokens
	}

	var out []toolbridge.GenericStreamChunk
	for _, choice := range chunk.Choices {
		out = append(out, p.feedChoice(choice)...)
	}
	return out
}

func (p *Processor) feedChoice(choice toolbridge.Choice) []toolbridge.GenericStreamChunk {
	if p.state.State == toolbridge.StateCompleteToolCallEmitted {
		// A synthesized tool call suppresses any trailing prose the
		// backend still sends for this turn.
		if choice.FinishReason != toolbridge.FinishNone {
			p.state.State = toolbridge.StateClosed
		}
		return nil
	}

	if choice.Delta != nil && len(choice.Delta.ToolCalls) > 0 {
		// A backend that calls tools natively (an OpenAI-shaped model, or
		// an Ollama model using its own tool_calls[]) never needs XML
		// synthesis; forward its tool-call delta untouched instead of
		// running it through the detector/buffer machinery meant for
		// plain-text content that might be a synthesized call.
		return p.forwardNativeToolCall(choice)
	}

	content := ""
	if choice.Delta != nil {
		content = choice.Delta.Content
	}

	if content != "" {
		p.state.UnifiedBuffer += content
	}

	if choice.FinishReason != toolbridge.FinishNone && p.state.UnifiedBuffer == "" && content == "" {
		return p.finishPassthrough(choice.FinishReason)
	}

	result := detector.Detect(p.state.UnifiedBuffer, p.knownTools)

	if !result.MightBeToolCall && !result.IsPotential {
		return p.flushPassthrough(choice.FinishReason)
	}

	p.state.State = toolbridge.StateBufferingPotentialToolCall

	if result.IsCompletedXml {
		if call, ok := xmlparser.Parse(p.state.UnifiedBuffer, p.knownTools); ok {
			p.state.UnifiedBuffer = ""
			p.state.State = toolbridge.StateCompleteToolCallEmitted
			p.state.ToolCallAlreadySent = true
			return p.emitter.EmitToolCall(call, p.state.Model)
		}
		// Detector thought this was complete XML but the parser
		// disagreed (malformed markup); recover by flushing as text.
		return p.flushPassthrough(choice.FinishReason)
	}

	if len(p.state.UnifiedBuffer) > p.maxBuffer {
		p.truncated = true
		p.state.UnifiedBuffer = xmlparser.TruncateTail(p.state.UnifiedBuffer)
		return p.flushPassthrough(choice.FinishReason)
	}

	if choice.FinishReason != toolbridge.FinishNone {
		// Stream ended while still buffering: never going to complete,
		// flush whatever was held as plain text.
		return p.flushPassthrough(choice.FinishReason)
	}

	return nil
}

// forwardNativeToolCall passes a backend's own tool_calls delta straight
// through as a generic chunk, unlike a synthesized call it never goes
// through an Emitter: the delta is already shaped like a tool call, just
// in the backend's provider terms, and the wire-level encoder on the way
// out renders it for whichever client format is requested.
func (p *Processor) forwardNativeToolCall(choice toolbridge.Choice) []toolbridge.GenericStreamChunk {
	out := toolbridge.GenericStreamChunk{
		Model: p.state.Model,
		Choices: []toolbridge.Choice{{
			Index:        choice.Index,
			Delta:        choice.Delta,
			FinishReason: choice.FinishReason,
		}},
	}
	if choice.FinishReason != toolbridge.FinishNone {
		p.state.State = toolbridge.StateClosed
		if p.state.IncludeUsage {
			out.Usage = &toolbridge.Usage{
				PromptTokens:     p.state.PromptTokens,
				CompletionTokens: p.state.CompletionTokens,
				TotalTokens:      p.state.PromptTokens + p.state.CompletionTokens,
			}
		}
	}
	return []toolbridge.GenericStreamChunk{out}
}

func (p *Processor) flushPassthrough(reason toolbridge.FinishReason) []toolbridge.GenericStreamChunk {
	text := p.state.UnifiedBuffer
	p.state.UnifiedBuffer = ""
	p.state.State = toolbridge.StatePassthrough

	var out []toolbridge.GenericStreamChunk
	if text != "" {
		out = append(out, toolbridge.GenericStreamChunk{
			Model: p.state.Model,
			Choices: []toolbridge.Choice{{
				Index: 0,
				Delta: &toolbridge.Message{Role: toolbridge.RoleAssistant, Content: text},
			}},
		})
	}
	if reason != toolbridge.FinishNone {
		out = append(out, p.terminalUsageChunk(reason))
		p.state.State = toolbridge.StateClosed
	}
	return out
}

func (p *Processor) finishPassthrough(reason toolbridge.FinishReason) []toolbridge.GenericStreamChunk {
	p.state.State = toolbridge.StateClosed
	return []toolbridge.GenericStreamChunk{p.terminalUsageChunk(reason)}
}

func (p *Processor) terminalUsageChunk(reason toolbridge.FinishReason) toolbridge.GenericStreamChunk {
	var usage *toolbridge.Usage
	if p.state.IncludeUsage {
		usage = &toolbridge.Usage{
			PromptTokens:     p.state.PromptTokens,
			CompletionTokens: p.state.CompletionTokens,
			TotalTokens:      p.state.PromptTokens + p.state.CompletionTokens,
		}
	}
	return p.emitter.EmitPlainFinish(p.state.Model, reason, usage)
}

// Close marks the processor closed without emitting anything further,
// used when the client disconnects mid-stream (spec.md's
// no-write-after-disconnect boundary property).
func (p *Processor) Close() {
	p.state.State = toolbridge.StateClosed
}
