package openai

import (
	"testing"

	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
)

func TestRequestToGenericMapsCoreFields(t *testing.T) {
	maxTokens := 256
	temp := 0.7
	req := WireRequest{
		Model:       "gpt-4o",
		Messages:    []WireMessage{{Role: "user", Content: "hi"}},
		MaxTokens:   &maxTokens,
		Temperature: &temp,
		Stop:        "STOP",
		ResponseFormat: &WireResponseFormat{Type: "json_object"},
	}

	g := RequestToGeneric(req)

	if g.Provider != toolbridge.ProviderOpenAI {
		t.Fatal("expected provider openai")
	}
	if g.Model != "gpt-4o" || len(g.Messages) != 1 || g.Messages[0].Content != "hi" {
		t.Fatalf("unexpected messages translation: %+v", g)
	}
	if g.MaxTokens == nil || *g.MaxTokens != 256 {
		t.Fatal("expected max_tokens preserved")
	}
	if g.Temperature == nil || *g.Temperature != 0.7 {
		t.Fatal("expected temperature preserved")
	}
	if len(g.Stop) != 1 || g.Stop[0] != "STOP" {
		t.Fatalf("expected single-string stop normalized to slice, got %+v", g.Stop)
	}
	if g.ResponseFormat == nil || g.ResponseFormat.Type != "json_object" {
		t.Fatal("expected response_format preserved")
	}
}

func TestRequestFromGenericRoundTrips(t *testing.T) {
	maxTokens := 128
	g := toolbridge.GenericRequest{
		Model:     "gpt-4o",
		Messages:  []toolbridge.Message{{Role: toolbridge.RoleUser, Content: "hi"}},
		MaxTokens: &maxTokens,
		Stop:      []string{"a", "b"},
		Tools: []toolbridge.Tool{{
			Name:        "get_weather",
			Description: "fetch weather",
			ParametersSchema: map[string]interface{}{
				"type": "object",
			},
		}},
		ToolChoice: &toolbridge.ToolChoice{FunctionName: "get_weather"},
	}

	req := RequestFromGeneric(g)

	if req.Model != "gpt-4o" || len(req.Messages) != 1 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.MaxTokens == nil || *req.MaxTokens != 128 {
		t.Fatal("expected max_tokens preserved")
	}
	stopList, ok := req.Stop.([]interface{})
	if !ok || len(stopList) != 2 {
		t.Fatalf("expected multi-element stop to render as array, got %#v", req.Stop)
	}
	if len(req.Tools) != 1 || req.Tools[0].Function.Name != "get_weather" {
		t.Fatalf("expected tool rendered, got %+v", req.Tools)
	}
	choice, ok := req.ToolChoice.(map[string]interface{})
	if !ok {
		t.Fatalf("expected tool_choice rendered as object, got %#v", req.ToolChoice)
	}
	fn, ok := choice["function"].(map[string]interface{})
	if !ok || fn["name"] != "get_weather" {
		t.Fatalf("expected named function tool_choice, got %+v", choice)
	}
}

func TestResponseRoundTripPreservesToolCalls(t *testing.T) {
	resp := WireResponse{
		ID:      "chatcmpl-1",
		Created: 100,
		Model:   "gpt-4o",
		Choices: []WireChoice{{
			Index: 0,
			Message: &WireMessage{
				Role: "assistant",
				ToolCalls: []WireToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: WireToolFunction{Name: "get_weather", Arguments: `{"location":"NYC"}`},
				}},
			},
			FinishReason: "tool_calls",
		}},
		Usage: &WireUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	g := ResponseToGeneric(resp)
	if len(g.Choices) != 1 || g.Choices[0].FinishReason != toolbridge.FinishToolCalls {
		t.Fatalf("expected tool_calls finish reason, got %+v", g.Choices)
	}
	if g.Choices[0].Message == nil || len(g.Choices[0].Message.ToolCalls) != 1 {
		t.Fatal("expected tool call preserved in generic message")
	}
	if g.Usage == nil || g.Usage.TotalTokens != 15 {
		t.Fatal("expected usage preserved")
	}

	back := ResponseFromGeneric(g)
	if back.Choices[0].Message.ToolCalls[0].Function.Name != "get_weather" {
		t.Fatal("expected round trip to preserve tool call function name")
	}
	if back.Object != "chat.completion" {
		t.Fatal("expected object field set on rendered response")
	}
}

func TestStreamChunkRoundTrip(t *testing.T) {
	finish := "stop"
	chunk := WireStreamChunk{
		ID:      "chatcmpl-1",
		Created: 100,
		Model:   "gpt-4o",
		Choices: []WireStreamChoice{{
			Index:        0,
			Delta:        WireDelta{Content: "hello"},
			FinishReason: &finish,
		}},
	}

	g := StreamChunkToGeneric(chunk)
	if len(g.Choices) != 1 || g.Choices[0].Delta.Content != "hello" {
		t.Fatalf("unexpected generic chunk: %+v", g)
	}
	if g.Choices[0].FinishReason != toolbridge.FinishStop {
		t.Fatal("expected stop finish reason preserved")
	}

	back := StreamChunkFromGeneric(g)
	if back.Object != "chat.completion.chunk" {
		t.Fatal("expected chunk object field set")
	}
	if back.Choices[0].FinishReason == nil || *back.Choices[0].FinishReason != "stop" {
		t.Fatal("expected finish reason rendered back")
	}
}

func TestStreamChunkToolCallDeltaRoundTrip(t *testing.T) {
	chunk := WireStreamChunk{
		Choices: []WireStreamChoice{{
			Delta: WireDelta{
				ToolCalls: []WireToolCallDelta{{
					Index: 0,
					ID:    "call_1",
					Type:  "function",
					Function: &WireToolFunctionDelta{Name: "get_weather", Arguments: `{"loc`},
				}},
			},
		}},
	}

	g := StreamChunkToGeneric(chunk)
	if len(g.Choices[0].Delta.ToolCalls) != 1 {
		t.Fatal("expected tool call delta preserved")
	}
	if g.Choices[0].Delta.ToolCalls[0].Function.Arguments != `{"loc` {
		t.Fatal("expected partial arguments preserved verbatim")
	}
}
