// Package openai converts between the OpenAI Chat Completions wire format
// and the generic intermediate representation (component 4.D).
package openai

import (
	"encoding/json"

	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
)

// WireMessage mirrors one element of an OpenAI "messages" array.
type WireMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content,omitempty"`
	ToolCalls  []WireToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

// WireToolCall mirrors one element of "tool_calls".
type WireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function WireToolFunction `json:"function"`
}

// WireToolFunction mirrors "function".
type WireToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// WireTool mirrors one element of "tools".
type WireTool struct {
	Type     string           `json:"type"`
	Function WireToolSchema   `json:"function"`
}

// WireToolSchema mirrors "function" inside a tool declaration.
type WireToolSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// WireStreamOptions mirrors "stream_options".
type WireStreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// WireResponseFormat mirrors "response_format".
type WireResponseFormat struct {
	Type string `json:"type"`
}

// WireRequest mirrors the full request body of POST /v1/chat/completions.
type WireRequest struct {
	Model             string              `json:"model"`
	Messages          []WireMessage       `json:"messages"`
	MaxTokens         *int                `json:"max_tokens,omitempty"`
	Temperature       *float64            `json:"temperature,omitempty"`
	TopP              *float64            `json:"top_p,omitempty"`
	FrequencyPenalty  *float64            `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float64            `json:"presence_penalty,omitempty"`
	Seed              *int                `json:"seed,omitempty"`
	Stop              interface{}         `json:"stop,omitempty"`
	Tools             []WireTool          `json:"tools,omitempty"`
	ToolChoice        interface{}         `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool               `json:"parallel_tool_calls,omitempty"`
	ResponseFormat    *WireResponseFormat `json:"response_format,omitempty"`
	Stream            bool                `json:"stream,omitempty"`
	StreamOptions     *WireStreamOptions  `json:"stream_options,omitempty"`
	N                 *int                `json:"n,omitempty"`
}

// WireChoice mirrors one element of "choices" on a batch response.
type WireChoice struct {
	Index        int         `json:"index"`
	Message      *WireMessage `json:"message,omitempty"`
	FinishReason string      `json:"finish_reason"`
}

// WireUsage mirrors "usage".
type WireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// WireResponse mirrors a full (non-streaming) chat completion response.
type WireResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []WireChoice `json:"choices"`
	Usage   *WireUsage   `json:"usage,omitempty"`
}

// WireDelta mirrors "delta" on a streamed chunk.
type WireDelta struct {
	Role      string         `json:"role,omitempty"`
	Content   string         `json:"content,omitempty"`
	ToolCalls []WireToolCallDelta `json:"tool_calls,omitempty"`
}

// WireToolCallDelta mirrors one streamed tool_calls[] entry, which carries
// an Index since arguments arrive fragmented across several chunks.
type WireToolCallDelta struct {
	Index    int                   `json:"index"`
	ID       string                `json:"id,omitempty"`
	Type     string                `json:"type,omitempty"`
	Function *WireToolFunctionDelta `json:"function,omitempty"`
}

// WireToolFunctionDelta mirrors a fragment of "function" in a streamed
// tool call.
type WireToolFunctionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// WireStreamChoice mirrors one "choices[]" entry on a streamed chunk.
type WireStreamChoice struct {
	Index        int        `json:"index"`
	Delta        WireDelta  `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// WireStreamChunk mirrors one SSE "data: {...}" JSON object.
type WireStreamChunk struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []WireStreamChoice `json:"choices"`
	Usage   *WireUsage         `json:"usage,omitempty"`
}

// RequestToGeneric converts a decoded OpenAI request body into the generic
// IR.
func RequestToGeneric(req WireRequest) toolbridge.GenericRequest {
	g := toolbridge.GenericRequest{
		Provider:          toolbridge.ProviderOpenAI,
		Model:             req.Model,
		Messages:          messagesToGeneric(req.Messages),
		MaxTokens:         req.MaxTokens,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		FrequencyPenalty:  req.FrequencyPenalty,
		PresencePenalty:   req.PresencePenalty,
		Seed:              req.Seed,
		Stop:              stopToGeneric(req.Stop),
		Tools:             toolsToGeneric(req.Tools),
		ToolChoice:        toolChoiceToGeneric(req.ToolChoice),
		ParallelToolCalls: req.ParallelToolCalls,
		Stream:            req.Stream,
		N:                 req.N,
	}
	if req.ResponseFormat != nil {
		g.ResponseFormat = &toolbridge.ResponseFormat{Type: req.ResponseFormat.Type}
	}
	if req.StreamOptions != nil {
		g.StreamOptions = toolbridge.StreamOptions{IncludeUsage: req.StreamOptions.IncludeUsage}
	}
	return g
}

// RequestFromGeneric renders the generic IR back into an OpenAI request
// body.
func RequestFromGeneric(g toolbridge.GenericRequest) WireRequest {
	req := WireRequest{
		Model:             g.Model,
		Messages:          messagesFromGeneric(g.Messages),
		MaxTokens:         g.MaxTokens,
		Temperature:       g.Temperature,
		TopP:              g.TopP,
		FrequencyPenalty:  g.FrequencyPenalty,
		PresencePenalty:   g.PresencePenalty,
		Seed:              g.Seed,
		Stop:              stopFromGeneric(g.Stop),
		Tools:             toolsFromGeneric(g.Tools),
		ToolChoice:        toolChoiceFromGeneric(g.ToolChoice),
		ParallelToolCalls: g.ParallelToolCalls,
		Stream:            g.Stream,
		N:                 g.N,
	}
	if g.ResponseFormat != nil {
		req.ResponseFormat = &WireResponseFormat{Type: g.ResponseFormat.Type}
	}
	if g.StreamOptions.IncludeUsage {
		req.StreamOptions = &WireStreamOptions{IncludeUsage: true}
	}
	return req
}

// ResponseToGeneric converts a decoded OpenAI batch response into the
// generic IR.
func ResponseToGeneric(resp WireResponse) toolbridge.GenericResponse {
	g := toolbridge.GenericResponse{
		ID:       resp.ID,
		Created:  resp.Created,
		Model:    resp.Model,
		Provider: toolbridge.ProviderOpenAI,
		Choices:  make([]toolbridge.Choice, 0, len(resp.Choices)),
	}
	for _, c := range resp.Choices {
		choice := toolbridge.Choice{
			Index:        c.Index,
			FinishReason: toolbridge.FinishReason(c.FinishReason),
		}
		if c.Message != nil {
			msg := messageToGeneric(*c.Message)
			choice.Message = &msg
		}
		g.Choices = append(g.Choices, choice)
	}
	if resp.Usage != nil {
		g.Usage = &toolbridge.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return g
}

// ResponseFromGeneric renders the generic IR back into an OpenAI batch
// response body.
func ResponseFromGeneric(g toolbridge.GenericResponse) WireResponse {
	resp := WireResponse{
		ID:      g.ID,
		Object:  "chat.completion",
		Created: g.Created,
		Model:   g.Model,
		Choices: make([]WireChoice, 0, len(g.Choices)),
	}
	for _, c := range g.Choices {
		wc := WireChoice{Index: c.Index, FinishReason: string(c.FinishReason)}
		if c.Message != nil {
			m := messageFromGeneric(*c.Message)
			wc.Message = &m
		}
		resp.Choices = append(resp.Choices, wc)
	}
	if g.Usage != nil {
		resp.Usage = &WireUsage{
			PromptTokens:     g.Usage.PromptTokens,
			CompletionTokens: g.Usage.CompletionTokens,
			TotalTokens:      g.Usage.TotalTokens,
		}
	}
	return resp
}

// StreamChunkToGeneric converts a decoded OpenAI SSE data payload into the
// generic IR.
func StreamChunkToGeneric(chunk WireStreamChunk) toolbridge.GenericStreamChunk {
	g := toolbridge.GenericStreamChunk{
		ID:       chunk.ID,
		Created:  chunk.Created,
		Model:    chunk.Model,
		Provider: toolbridge.ProviderOpenAI,
		Choices:  make([]toolbridge.Choice, 0, len(chunk.Choices)),
	}
	for _, c := range chunk.Choices {
		delta := toolbridge.Message{Role: toolbridge.Role(c.Delta.Role), Content: c.Delta.Content}
		for _, tc := range c.Delta.ToolCalls {
			entry := toolbridge.ToolCall{ID: tc.ID, Type: tc.Type}
			if tc.Function != nil {
				entry.Function = toolbridge.ToolCallFunction{Name: tc.Function.Name, Arguments: tc.Function.Arguments}
			}
			delta.ToolCalls = append(delta.ToolCalls, entry)
		}
		fr := toolbridge.FinishNone
		if c.FinishReason != nil {
			fr = toolbridge.FinishReason(*c.FinishReason)
		}
		g.Choices = append(g.Choices, toolbridge.Choice{Index: c.Index, Delta: &delta, FinishReason: fr})
	}
	if chunk.Usage != nil {
		g.Usage = &toolbridge.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}
	return g
}

// StreamChunkFromGeneric renders the generic IR back into an OpenAI SSE
// data payload.
func StreamChunkFromGeneric(g toolbridge.GenericStreamChunk) WireStreamChunk {
	chunk := WireStreamChunk{
		ID:      g.ID,
		Object:  "chat.completion.chunk",
		Created: g.Created,
		Model:   g.Model,
		Choices: make([]WireStreamChoice, 0, len(g.Choices)),
	}
	for _, c := range g.Choices {
		var delta WireDelta
		if c.Delta != nil {
			delta.Role = string(c.Delta.Role)
			delta.Content = c.Delta.Content
			for _, tc := range c.Delta.ToolCalls {
				delta.ToolCalls = append(delta.ToolCalls, WireToolCallDelta{
					Index: 0,
					ID:    tc.ID,
					Type:  tc.Type,
					Function: &WireToolFunctionDelta{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
		}
		var fr *string
		if c.FinishReason != toolbridge.FinishNone {
			s := string(c.FinishReason)
			fr = &s
		}
		chunk.Choices = append(chunk.Choices, WireStreamChoice{Index: c.Index, Delta: delta, FinishReason: fr})
	}
	if g.Usage != nil {
		chunk.Usage = &WireUsage{
			PromptTokens:     g.Usage.PromptTokens,
			CompletionTokens: g.Usage.CompletionTokens,
			TotalTokens:      g.Usage.TotalTokens,
		}
	}
	return chunk
}

func messagesToGeneric(in []WireMessage) []toolbridge.Message {
	out := make([]toolbridge.Message, 0, len(in))
	for _, m := range in {
		out = append(out, messageToGeneric(m))
	}
	return out
}

func messageToGeneric(m WireMessage) toolbridge.Message {
	msg := toolbridge.Message{
		Role:       toolbridge.Role(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, toolbridge.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: toolbridge.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return msg
}

func messagesFromGeneric(in []toolbridge.Message) []WireMessage {
	out := make([]WireMessage, 0, len(in))
	for _, m := range in {
		out = append(out, messageFromGeneric(m))
	}
	return out
}

func messageFromGeneric(m toolbridge.Message) WireMessage {
	wm := WireMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	for _, tc := range m.ToolCalls {
		wm.ToolCalls = append(wm.ToolCalls, WireToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: WireToolFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return wm
}

func toolsToGeneric(in []WireTool) []toolbridge.Tool {
	if len(in) == 0 {
		return nil
	}
	out := make([]toolbridge.Tool, 0, len(in))
	for _, t := range in {
		out = append(out, toolbridge.Tool{
			Name:             t.Function.Name,
			Description:      t.Function.Description,
			ParametersSchema: t.Function.Parameters,
		})
	}
	return out
}

func toolsFromGeneric(in []toolbridge.Tool) []WireTool {
	if len(in) == 0 {
		return nil
	}
	out := make([]WireTool, 0, len(in))
	for _, t := range in {
		out = append(out, WireTool{
			Type: "function",
			Function: WireToolSchema{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.ParametersSchema,
			},
		})
	}
	return out
}

func toolChoiceToGeneric(v interface{}) *toolbridge.ToolChoice {
	switch tc := v.(type) {
	case nil:
		return nil
	case string:
		return &toolbridge.ToolChoice{Mode: tc}
	case map[string]interface{}:
		if fn, ok := tc["function"].(map[string]interface{}); ok {
			if name, ok := fn["name"].(string); ok {
				return &toolbridge.ToolChoice{FunctionName: name}
			}
		}
	}
	return nil
}

func toolChoiceFromGeneric(tc *toolbridge.ToolChoice) interface{} {
	if tc == nil {
		return nil
	}
	if tc.FunctionName != "" {
		return map[string]interface{}{
			"type":     "function",
			"function": map[string]interface{}{"name": tc.FunctionName},
		}
	}
	if tc.Mode != "" {
		return tc.Mode
	}
	return nil
}

func stopToGeneric(v interface{}) []string {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		return []string{s}
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return s
	}
	return nil
}

func stopFromGeneric(stop []string) interface{} {
	switch len(stop) {
	case 0:
		return nil
	case 1:
		return stop[0]
	default:
		out := make([]interface{}, len(stop))
		for i, s := range stop {
			out[i] = s
		}
		return out
	}
}

// MarshalChunk is a convenience for the streaming processor: it encodes a
// WireStreamChunk to the exact JSON the SSE "data:" line carries.
func MarshalChunk(chunk WireStreamChunk) ([]byte, error) {
	return json.Marshal(chunk)
}
