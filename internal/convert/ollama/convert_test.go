package ollama

import (
	"strings"
	"testing"

	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
)

func TestRequestToGenericMapsOptions(t *testing.T) {
	maxTokens := 256
	temp := 0.5
	topK := 40
	req := WireRequest{
		Model:    "llama3",
		Messages: []WireMessage{{Role: "user", Content: "hi"}},
		Options: &WireOptions{
			NumPredict:  &maxTokens,
			Temperature: &temp,
			TopK:        &topK,
			Stop:        []string{"STOP"},
		},
		Format: "json",
	}

	g := RequestToGeneric(req)

	if g.Provider != toolbridge.ProviderOllama {
		t.Fatal("expected provider ollama")
	}
	if g.MaxTokens == nil || *g.MaxTokens != 256 {
		t.Fatal("expected num_predict mapped to max tokens")
	}
	if g.TopK == nil || *g.TopK != 40 {
		t.Fatal("expected top_k preserved (ollama-only field)")
	}
	if g.ResponseFormat == nil || g.ResponseFormat.Type != "json_object" {
		t.Fatal("expected format:json mapped to json_object")
	}
	if len(g.Stop) != 1 || g.Stop[0] != "STOP" {
		t.Fatal("expected stop list preserved")
	}
}

func TestRequestFromGenericMapsIntoOptions(t *testing.T) {
	maxTokens := 100
	repPenalty := 1.1
	g := toolbridge.GenericRequest{
		Model:             "llama3",
		Messages:          []toolbridge.Message{{Role: toolbridge.RoleUser, Content: "hi"}},
		MaxTokens:         &maxTokens,
		RepetitionPenalty: &repPenalty,
		ResponseFormat:    &toolbridge.ResponseFormat{Type: "json_object"},
	}

	req := RequestFromGeneric(g)

	if req.Options == nil {
		t.Fatal("expected options populated")
	}
	if req.Options.NumPredict == nil || *req.Options.NumPredict != 100 {
		t.Fatal("expected max tokens mapped to num_predict")
	}
	if req.Options.RepeatPenalty == nil || *req.Options.RepeatPenalty != 1.1 {
		t.Fatal("expected repetition penalty mapped to repeat_penalty")
	}
	format, ok := req.Format.(string)
	if !ok || format != "json" {
		t.Fatalf("expected format rendered as json, got %#v", req.Format)
	}
}

func TestResponseToGenericPrefersNativeToolCalls(t *testing.T) {
	resp := WireResponse{
		Model: "llama3",
		Message: WireMessage{
			Role: "assistant",
			ToolCalls: []WireToolCall{{
				Function: WireToolCallFunction{Name: "get_weather", Arguments: map[string]interface{}{"location": "NYC"}},
			}},
		},
		Done:            true,
		PromptEvalCount: 10,
		EvalCount:       5,
	}

	g := ResponseToGeneric(resp, true, map[string]bool{"get_weather": true})

	if len(g.Choices) != 1 || g.Choices[0].Message == nil {
		t.Fatal("expected single choice with message")
	}
	if len(g.Choices[0].Message.ToolCalls) != 1 {
		t.Fatal("expected native tool call preserved")
	}
	if g.Choices[0].FinishReason != toolbridge.FinishToolCalls {
		t.Fatal("expected tool_calls finish reason")
	}
	if !strings.Contains(g.Choices[0].Message.ToolCalls[0].Function.Arguments, "NYC") {
		t.Fatal("expected arguments marshaled to JSON string")
	}
}

func TestResponseToGenericFallsBackToXMLExtraction(t *testing.T) {
	resp := WireResponse{
		Model: "llama3",
		Message: WireMessage{
			Role:    "assistant",
			Content: `<get_weather><location>NYC</location></get_weather>`,
		},
		Done: true,
	}

	g := ResponseToGeneric(resp, true, map[string]bool{"get_weather": true})

	if len(g.Choices[0].Message.ToolCalls) != 1 {
		t.Fatal("expected XML fallback to synthesize a tool call")
	}
	if g.Choices[0].Message.ToolCalls[0].Function.Name != "get_weather" {
		t.Fatal("expected extracted tool name")
	}
	if g.Choices[0].Message.Content != "" {
		t.Fatal("expected content cleared once synthesized as a tool call")
	}
	if g.Choices[0].FinishReason != toolbridge.FinishToolCalls {
		t.Fatal("expected tool_calls finish reason on XML fallback")
	}
}

func TestResponseToGenericLeavesPlainTextAlone(t *testing.T) {
	resp := WireResponse{
		Model:   "llama3",
		Message: WireMessage{Role: "assistant", Content: "just a normal reply"},
		Done:    true,
	}

	g := ResponseToGeneric(resp, true, map[string]bool{"get_weather": true})

	if len(g.Choices[0].Message.ToolCalls) != 0 {
		t.Fatal("expected no tool call synthesized from plain prose")
	}
	if g.Choices[0].Message.Content != "just a normal reply" {
		t.Fatal("expected content preserved verbatim")
	}
	if g.Choices[0].FinishReason != toolbridge.FinishStop {
		t.Fatal("expected stop finish reason")
	}
}

func TestStreamChunkRoundTrip(t *testing.T) {
	resp := WireResponse{
		Model:   "llama3",
		Message: WireMessage{Role: "assistant", Content: "partial"},
		Done:    false,
	}

	chunk := StreamChunkToGeneric(resp)
	if chunk.Choices[0].Delta.Content != "partial" {
		t.Fatal("expected content preserved in delta")
	}
	if chunk.Choices[0].FinishReason != toolbridge.FinishNone {
		t.Fatal("expected no finish reason mid-stream")
	}

	back := StreamChunkFromGeneric(chunk, "2024-01-01T00:00:00Z")
	if back.Done {
		t.Fatal("expected done=false preserved on rendered record")
	}
}

func TestStreamChunkFinalRecordSetsDone(t *testing.T) {
	resp := WireResponse{
		Model:           "llama3",
		Message:         WireMessage{Role: "assistant"},
		Done:            true,
		PromptEvalCount: 3,
		EvalCount:       7,
	}

	chunk := StreamChunkToGeneric(resp)
	if chunk.Choices[0].FinishReason != toolbridge.FinishStop {
		t.Fatal("expected stop finish reason on terminal record")
	}
	if chunk.Usage == nil || chunk.Usage.TotalTokens != 10 {
		t.Fatal("expected usage totals on terminal record")
	}
}

func TestArgumentsRoundTrip(t *testing.T) {
	args := map[string]interface{}{"location": "NYC", "unit": "celsius"}
	s := marshalArguments(args)
	back := unmarshalArguments(s)
	if back["location"] != "NYC" || back["unit"] != "celsius" {
		t.Fatalf("expected arguments to round trip, got %+v", back)
	}
}
