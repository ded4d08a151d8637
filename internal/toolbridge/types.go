// Package toolbridge defines the neutral intermediate representation that
// every wire-format converter reads from and writes to. Nothing here knows
// about HTTP, SSE framing, or any specific backend — it is plain data.
package toolbridge

// Provider identifies a wire shape a client or backend speaks. The set is
// closed: adding a third provider means adding a case here and in every
// switch that dispatches on it, not registering a new implementation.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason mirrors the OpenAI finish_reason enum; Ollama responses are
// mapped onto it at the converter boundary.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishNone          FinishReason = ""
)

// ToolCallFunction is the {name, arguments} payload of one tool invocation,
// carried on a ToolCall in both a batch Message and a stream Delta.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a complete, structured tool invocation attached to a message.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// Message is one turn of the conversation carried in the generic IR.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Tool is one function the model may call. ParametersSchema is carried
// through opaquely — the proxy never validates arguments against it, only
// renders it into the XML instruction block and forwards it natively when
// PassTools is enabled.
type Tool struct {
	Name             string
	Description      string
	ParametersSchema map[string]interface{}
}

// ToolChoice mirrors OpenAI's tool_choice: either a mode keyword or a forced
// function name.
type ToolChoice struct {
	Mode         string // "auto", "none", "required", or "" when FunctionName is set
	FunctionName string
}

// StreamOptions controls whether a final usage-bearing chunk is emitted.
type StreamOptions struct {
	IncludeUsage bool
}

// ResponseFormat mirrors OpenAI's response_format.
type ResponseFormat struct {
	Type string // "text", "json_object", "json_schema"
}

// GenericRequest is the provider-neutral request the translation engine
// operates on. One value is created and owned per inbound HTTP request; it
// is never shared across requests.
type GenericRequest struct {
	Provider Provider
	Model    string
	Messages []Message

	MaxTokens         *int
	Temperature       *float64
	TopP              *float64
	TopK              *int
	RepetitionPenalty *float64
	FrequencyPenalty  *float64
	PresencePenalty   *float64
	Seed              *int
	Stop              []string

	Tools             []Tool
	ToolChoice        *ToolChoice
	ParallelToolCalls *bool

	ResponseFormat *ResponseFormat
	Stream         bool
	StreamOptions  StreamOptions
	N              *int

	// Extensions carries provider-specific fields the generic model has no
	// slot for, so a round-trip through the IR never silently drops them.
	Extensions map[string]interface{}
}

// Usage is token accounting, carried on both batch responses and a final
// streaming chunk when requested.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one candidate completion. Message is populated on a batch
// response; Delta is populated on a stream chunk. Exactly one of the two is
// set depending on context.
type Choice struct {
	Index        int
	Message      *Message
	Delta        *Message
	FinishReason FinishReason
}

// GenericResponse is a complete, non-streaming model response.
type GenericResponse struct {
	ID       string
	Created  int64
	Model    string
	Provider Provider
	Choices  []Choice
	Usage    *Usage
}

// GenericStreamChunk is one increment of a streaming response.
type GenericStreamChunk struct {
	ID       string
	Created  int64
	Model    string
	Provider Provider
	Choices  []Choice
	Usage    *Usage
}

// ExtractedToolCall is what the XML parser (4.B) hands back: a tool name and
// its typed arguments.
type ExtractedToolCall struct {
	Name      string
	Arguments map[string]interface{}
}

// PartialToolCallState is the streaming detector's memory of whether the
// buffer in flight is, might become, or definitely is not a tool call. One
// instance lives per active stream inside StreamProcessorState; the stream
// processor neither reads nor resets it, and instead re-classifies
// UnifiedBuffer on every chunk.
type PartialToolCallState struct {
	RootTag            string
	MightBeToolCall    bool
	IdentifiedToolName string
	BufferedPrefix     string
}

// ProcessorState is the per-request streaming state machine's memory.
type ProcessorState int

const (
	StatePassthrough ProcessorState = iota
	StateBufferingPotentialToolCall
	StateCompleteToolCallEmitted
	StateClosed
)

// StreamProcessorState is owned by exactly one response-writing goroutine
// for the lifetime of one streaming request; it is destroyed at stream end
// and never shared.
type StreamProcessorState struct {
	State               ProcessorState
	ContentBuffer       string
	UnifiedBuffer       string
	Partial             PartialToolCallState
	ToolCallAlreadySent bool
	Model               string
	IncludeUsage        bool
	PromptTokens        int
	CompletionTokens    int
}
