// Package translate orchestrates a full request/response translation
// between two providers' wire shapes via the generic intermediate
// representation (component 4.E): decode to generic, apply the
// capability filter, inject synthetic tool-use instructions when the
// target lacks native tool calling, and encode into the target shape.
package translate

import (
	"encoding/json"
	"fmt"

	"github.com/Oct4Pie/toolbridge/internal/capability"
	"github.com/Oct4Pie/toolbridge/internal/convert/ollama"
	"github.com/Oct4Pie/toolbridge/internal/convert/openai"
	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
	"github.com/Oct4Pie/toolbridge/internal/toolprompt"
)

// Options tunes how a translation is performed.
type Options struct {
	// InjectToolInstructions, when true, folds the tool-use XML
	// instructions into the request destined for a target provider that
	// cannot call tools natively (Ollama).
	InjectToolInstructions bool
	// ExtractXMLToolCalls, when true, has responseFrom* try to recover a
	// synthesized tool call from plain-text content when the backend
	// returned no native tool_calls.
	ExtractXMLToolCalls bool
	// ReinjectMessageThreshold and ReinjectTokenThreshold configure
	// toolprompt.MaybeReinject; a zero ReinjectMessageThreshold disables
	// re-injection, while a zero ReinjectTokenThreshold lets any non-empty
	// message since the last system message trigger it.
	ReinjectMessageThreshold int
	ReinjectTokenThreshold   int
	// ReinjectRole is the configured TOOL_REINJECTION_TYPE, passed through
	// as MaybeReinject's preferred role.
	ReinjectRole toolbridge.Role
}

// RequestToGeneric decodes a raw client request body in fromProvider's
// wire shape into the generic IR.
func RequestToGeneric(fromProvider toolbridge.Provider, body []byte) (toolbridge.GenericRequest, error) {
	switch fromProvider {
	case toolbridge.ProviderOpenAI:
		var wire openai.WireRequest
		if err := json.Unmarshal(body, &wire); err != nil {
			return toolbridge.GenericRequest{}, fmt.Errorf("decode openai request: %w", err)
		}
		return openai.RequestToGeneric(wire), nil
	case toolbridge.ProviderOllama:
		var wire ollama.WireRequest
		if err := json.Unmarshal(body, &wire); err != nil {
			return toolbridge.GenericRequest{}, fmt.Errorf("decode ollama request: %w", err)
		}
		return ollama.RequestToGeneric(wire), nil
	default:
		return toolbridge.GenericRequest{}, fmt.Errorf("unknown provider %q", fromProvider)
	}
}

// RequestFromGeneric filters a generic request for toProvider, optionally
// injects synthetic tool-call instructions, and marshals the target wire
// body.
func RequestFromGeneric(g toolbridge.GenericRequest, toProvider toolbridge.Provider, opts Options) ([]byte, error) {
	filtered := capability.Filter(g, toProvider)

	if toProvider == toolbridge.ProviderOllama && opts.InjectToolInstructions && len(filtered.Tools) > 0 {
		filtered.Messages = toolprompt.Inject(filtered.Messages, filtered.Tools)
	}
	if opts.ReinjectMessageThreshold > 0 {
		filtered.Messages = toolprompt.MaybeReinject(filtered.Messages, opts.ReinjectMessageThreshold, opts.ReinjectTokenThreshold, opts.ReinjectRole)
	}

	switch toProvider {
	case toolbridge.ProviderOpenAI:
		return json.Marshal(openai.RequestFromGeneric(filtered))
	case toolbridge.ProviderOllama:
		return json.Marshal(ollama.RequestFromGeneric(filtered))
	default:
		return nil, fmt.Errorf("unknown provider %q", toProvider)
	}
}

// TranslateRequest performs the full request-side translation described by
// spec.md §4.E: decode fromProvider's wire body to generic, filter and
// (when applicable) inject for toProvider, and encode the target body.
func TranslateRequest(body []byte, fromProvider, toProvider toolbridge.Provider, opts Options) ([]byte, toolbridge.GenericRequest, error) {
	g, err := RequestToGeneric(fromProvider, body)
	if err != nil {
		return nil, toolbridge.GenericRequest{}, err
	}
	out, err := RequestFromGeneric(g, toProvider, opts)
	return out, g, err
}

// ResponseToGeneric decodes a backend's raw batch response body
// (fromProvider's wire shape) into the generic IR. knownTools drives the
// Ollama XML fallback extraction.
func ResponseToGeneric(fromProvider toolbridge.Provider, body []byte, opts Options, knownTools map[string]bool) (toolbridge.GenericResponse, error) {
	switch fromProvider {
	case toolbridge.ProviderOpenAI:
		var wire openai.WireResponse
		if err := json.Unmarshal(body, &wire); err != nil {
			return toolbridge.GenericResponse{}, fmt.Errorf("decode openai response: %w", err)
		}
		return openai.ResponseToGeneric(wire), nil
	case toolbridge.ProviderOllama:
		var wire ollama.WireResponse
		if err := json.Unmarshal(body, &wire); err != nil {
			return toolbridge.GenericResponse{}, fmt.Errorf("decode ollama response: %w", err)
		}
		return ollama.ResponseToGeneric(wire, opts.ExtractXMLToolCalls, knownTools), nil
	default:
		return toolbridge.GenericResponse{}, fmt.Errorf("unknown provider %q", fromProvider)
	}
}

// ResponseFromGeneric renders the generic IR into toProvider's wire
// response body.
func ResponseFromGeneric(g toolbridge.GenericResponse, toProvider toolbridge.Provider, createdAt string) ([]byte, error) {
	switch toProvider {
	case toolbridge.ProviderOpenAI:
		return json.Marshal(openai.ResponseFromGeneric(g))
	case toolbridge.ProviderOllama:
		return json.Marshal(ollama.ResponseFromGeneric(g, createdAt))
	default:
		return nil, fmt.Errorf("unknown provider %q", toProvider)
	}
}

// TranslateResponse performs the full response-side translation: decode
// the backend body (fromProvider), including XML tool-call recovery when
// applicable, and encode into the client's expected shape (toProvider).
func TranslateResponse(body []byte, fromProvider, toProvider toolbridge.Provider, opts Options, knownTools map[string]bool, createdAt string) ([]byte, toolbridge.GenericResponse, error) {
	g, err := ResponseToGeneric(fromProvider, body, opts, knownTools)
	if err != nil {
		return nil, toolbridge.GenericResponse{}, err
	}
	out, err := ResponseFromGeneric(g, toProvider, createdAt)
	return out, g, err
}

// StreamChunkToGeneric decodes one backend-origin streamed record
// (fromProvider's wire shape: one SSE data payload for OpenAI, one NDJSON
// line for Ollama) into the generic IR.
func StreamChunkToGeneric(fromProvider toolbridge.Provider, raw []byte) (toolbridge.GenericStreamChunk, error) {
	switch fromProvider {
	case toolbridge.ProviderOpenAI:
		var wire openai.WireStreamChunk
		if err := json.Unmarshal(raw, &wire); err != nil {
			return toolbridge.GenericStreamChunk{}, fmt.Errorf("decode openai stream chunk: %w", err)
		}
		return openai.StreamChunkToGeneric(wire), nil
	case toolbridge.ProviderOllama:
		var wire ollama.WireResponse
		if err := json.Unmarshal(raw, &wire); err != nil {
			return toolbridge.GenericStreamChunk{}, fmt.Errorf("decode ollama stream chunk: %w", err)
		}
		return ollama.StreamChunkToGeneric(wire), nil
	default:
		return toolbridge.GenericStreamChunk{}, fmt.Errorf("unknown provider %q", fromProvider)
	}
}

// ResponseFromGenericStreamChunk renders one generic stream chunk into
// toProvider's wire shape (an OpenAI SSE data payload or an Ollama NDJSON
// line, without the line framing itself).
func ResponseFromGenericStreamChunk(g toolbridge.GenericStreamChunk, toProvider toolbridge.Provider, createdAt string) ([]byte, error) {
	switch toProvider {
	case toolbridge.ProviderOpenAI:
		return json.Marshal(openai.StreamChunkFromGeneric(g))
	case toolbridge.ProviderOllama:
		return json.Marshal(ollama.StreamChunkFromGeneric(g, createdAt))
	default:
		return nil, fmt.Errorf("unknown provider %q", toProvider)
	}
}
