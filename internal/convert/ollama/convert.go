// Package ollama converts between the Ollama native chat/generate wire
// format and the generic intermediate representation (component 4.D).
package ollama

import (
	"github.com/google/uuid"

	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
	"github.com/Oct4Pie/toolbridge/internal/xmlparser"
)

// WireToolCall mirrors a native Ollama tool_calls[] entry.
type WireToolCall struct {
	Function WireToolCallFunction `json:"function"`
}

// WireToolCallFunction mirrors "function" on a native tool call; Ollama
// emits arguments as a decoded object rather than a JSON string.
type WireToolCallFunction struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// WireMessage mirrors one element of the Ollama "messages" array.
type WireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []WireToolCall `json:"tool_calls,omitempty"`
}

// WireToolFunction mirrors "function" inside a tool declaration.
type WireToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// WireTool mirrors one element of "tools".
type WireTool struct {
	Type     string           `json:"type"`
	Function WireToolFunction `json:"function"`
}

// WireOptions mirrors Ollama's "options" object, which carries most of the
// sampling parameters OpenAI puts at the top level of the request.
type WireOptions struct {
	NumPredict     *int     `json:"num_predict,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	TopP           *float64 `json:"top_p,omitempty"`
	TopK           *int     `json:"top_k,omitempty"`
	RepeatPenalty  *float64 `json:"repeat_penalty,omitempty"`
	Seed           *int     `json:"seed,omitempty"`
	Stop           []string `json:"stop,omitempty"`
}

func (o *WireOptions) isZero() bool {
	return o == nil || (*o == WireOptions{})
}

// WireRequest mirrors the full request body of POST /api/chat.
type WireRequest struct {
	Model    string        `json:"model"`
	Messages []WireMessage `json:"messages,omitempty"`
	// Prompt is the generate-style single-turn shape; when Messages is
	// empty and Prompt is set, RequestToGeneric normalizes it into a
	// one-element user message list.
	Prompt   string        `json:"prompt,omitempty"`
	Tools    []WireTool    `json:"tools,omitempty"`
	Options  *WireOptions  `json:"options,omitempty"`
	Format   interface{}   `json:"format,omitempty"`
	Stream   *bool         `json:"stream,omitempty"`
}

// WireResponse mirrors a full (non-streaming, done=true) /api/chat record.
type WireResponse struct {
	Model           string      `json:"model"`
	CreatedAt       string      `json:"created_at"`
	Message         WireMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

// RequestToGeneric converts a decoded Ollama /api/chat request into the
// generic IR. A request carrying a bare "prompt" instead of "messages" is
// normalized here into a single-element user message list, matching the
// generate-style request shape.
func RequestToGeneric(req WireRequest) toolbridge.GenericRequest {
	messages := req.Messages
	if len(messages) == 0 && req.Prompt != "" {
		messages = []WireMessage{{Role: "user", Content: req.Prompt}}
	}

	g := toolbridge.GenericRequest{
		Provider: toolbridge.ProviderOllama,
		Model:    req.Model,
		Messages: messagesToGeneric(messages),
		Tools:    toolsToGeneric(req.Tools),
	}
	if req.Stream != nil {
		g.Stream = *req.Stream
	}
	if opt := req.Options; opt != nil {
		g.MaxTokens = opt.NumPredict
		g.Temperature = opt.Temperature
		g.TopP = opt.TopP
		g.TopK = opt.TopK
		g.RepetitionPenalty = opt.RepeatPenalty
		g.Seed = opt.Seed
		g.Stop = opt.Stop
	}
	if format, ok := req.Format.(string); ok && format == "json" {
		g.ResponseFormat = &toolbridge.ResponseFormat{Type: "json_object"}
	}
	return g
}

// RequestFromGeneric renders the generic IR into an Ollama /api/chat
// request body.
func RequestFromGeneric(g toolbridge.GenericRequest) WireRequest {
	req := WireRequest{
		Model:    g.Model,
		Messages: messagesFromGeneric(g.Messages),
		Tools:    toolsFromGeneric(g.Tools),
	}
	if g.Stream {
		stream := true
		req.Stream = &stream
	} else {
		stream := false
		req.Stream = &stream
	}

	opt := WireOptions{
		NumPredict:    g.MaxTokens,
		Temperature:   g.Temperature,
		TopP:          g.TopP,
		TopK:          g.TopK,
		RepeatPenalty: g.RepetitionPenalty,
		Seed:          g.Seed,
		Stop:          g.Stop,
	}
	if !opt.isZero() {
		req.Options = &opt
	}

	if g.ResponseFormat != nil && g.ResponseFormat.Type == "json_object" {
		req.Format = "json"
	}
	return req
}

// ResponseToGeneric converts a decoded Ollama /api/chat response into the
// generic IR. Native tool_calls[] is preferred; when absent and
// extractXML is true the message content is scanned for a synthesized
// XML tool invocation using knownTools.
func ResponseToGeneric(resp WireResponse, extractXML bool, knownTools map[string]bool) toolbridge.GenericResponse {
	msg := messageToGeneric(resp.Message)
	finish := toolbridge.FinishStop
	if resp.DoneReason == "length" {
		finish = toolbridge.FinishLength
	}

	if len(msg.ToolCalls) == 0 && extractXML && msg.Content != "" {
		if call, ok := xmlparser.Parse(msg.Content, knownTools); ok {
			msg.ToolCalls = []toolbridge.ToolCall{toolCallFromExtracted(call)}
			msg.Content = ""
			finish = toolbridge.FinishToolCalls
		}
	} else if len(msg.ToolCalls) > 0 {
		finish = toolbridge.FinishToolCalls
	}

	return toolbridge.GenericResponse{
		Model:    resp.Model,
		Provider: toolbridge.ProviderOllama,
		Choices: []toolbridge.Choice{{
			Index:        0,
			Message:      &msg,
			FinishReason: finish,
		}},
		Usage: &toolbridge.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}
}

// ResponseFromGeneric renders the generic IR back into an Ollama /api/chat
// response record.
func ResponseFromGeneric(g toolbridge.GenericResponse, createdAt string) WireResponse {
	resp := WireResponse{
		Model:     g.Model,
		CreatedAt: createdAt,
		Done:      true,
	}
	if len(g.Choices) > 0 {
		c := g.Choices[0]
		if c.Message != nil {
			resp.Message = messageFromGeneric(*c.Message)
		}
		if c.FinishReason == toolbridge.FinishLength {
			resp.DoneReason = "length"
		} else {
			resp.DoneReason = "stop"
		}
	}
	if g.Usage != nil {
		resp.PromptEvalCount = g.Usage.PromptTokens
		resp.EvalCount = g.Usage.CompletionTokens
	}
	return resp
}

// StreamChunkToGeneric converts one decoded NDJSON record from a streaming
// Ollama /api/chat response into the generic IR.
func StreamChunkToGeneric(resp WireResponse) toolbridge.GenericStreamChunk {
	delta := messageToGeneric(resp.Message)
	finish := toolbridge.FinishNone
	if resp.Done {
		finish = toolbridge.FinishStop
		if resp.DoneReason == "length" {
			finish = toolbridge.FinishLength
		}
		if len(delta.ToolCalls) > 0 {
			finish = toolbridge.FinishToolCalls
		}
	}

	chunk := toolbridge.GenericStreamChunk{
		Model:    resp.Model,
		Provider: toolbridge.ProviderOllama,
		Choices: []toolbridge.Choice{{
			Index:        0,
			Delta:        &delta,
			FinishReason: finish,
		}},
	}
	if resp.Done {
		chunk.Usage = &toolbridge.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		}
	}
	return chunk
}

// StreamChunkFromGeneric renders the generic IR back into one Ollama
// NDJSON record.
func StreamChunkFromGeneric(g toolbridge.GenericStreamChunk, createdAt string) WireResponse {
	resp := WireResponse{Model: g.Model, CreatedAt: createdAt}
	if len(g.Choices) == 0 {
		return resp
	}
	c := g.Choices[0]
	if c.Delta != nil {
		resp.Message = messageFromGeneric(*c.Delta)
	}
	if c.FinishReason != toolbridge.FinishNone {
		resp.Done = true
		if c.FinishReason == toolbridge.FinishLength {
			resp.DoneReason = "length"
		} else {
			resp.DoneReason = "stop"
		}
	}
	if g.Usage != nil {
		resp.PromptEvalCount = g.Usage.PromptTokens
		resp.EvalCount = g.Usage.CompletionTokens
	}
	return resp
}

func messagesToGeneric(in []WireMessage) []toolbridge.Message {
	out := make([]toolbridge.Message, 0, len(in))
	for _, m := range in {
		out = append(out, messageToGeneric(m))
	}
	return out
}

func messageToGeneric(m WireMessage) toolbridge.Message {
	msg := toolbridge.Message{Role: toolbridge.Role(m.Role), Content: m.Content}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, toolbridge.ToolCall{
			ID:   syntheticCallID(),
			Type: "function",
			Function: toolbridge.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: marshalArguments(tc.Function.Arguments),
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
	wm := WireMessage{Role: string(m.Role), Content: m.Content}
	for _, tc := range m.ToolCalls {
		wm.ToolCalls = append(wm.ToolCalls, WireToolCall{
			Function: WireToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: unmarshalArguments(tc.Function.Arguments),
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
			Function: WireToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.ParametersSchema,
			},
		})
	}
	return out
}

func toolCallFromExtracted(call toolbridge.ExtractedToolCall) toolbridge.ToolCall {
	return toolbridge.ToolCall{
		ID:   syntheticCallID(),
		Type: "function",
		Function: toolbridge.ToolCallFunction{
			Name:      call.Name,
			Arguments: marshalArguments(call.Arguments),
		},
	}
}

// syntheticCallID fabricates a tool_call id for Ollama responses, which do
// not carry one natively: OpenAI-shaped clients require call.id to match
// between the assistant's tool_calls[] entry and the follow-up tool
// message's tool_call_id.
func syntheticCallID() string {
	return "call_" + uuid.NewString()
}
