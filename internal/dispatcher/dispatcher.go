// Package dispatcher implements the HTTP adapter (component 4.G) that
// detects a client's wire format, translates its request into the
// configured backend's shape, dispatches it, and writes back either a
// batch or streaming response.
package dispatcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Oct4Pie/toolbridge/internal/backendclient"
	"github.com/Oct4Pie/toolbridge/internal/config"
	"github.com/Oct4Pie/toolbridge/internal/errkind"
	"github.com/Oct4Pie/toolbridge/internal/stream"
	"github.com/Oct4Pie/toolbridge/internal/toolbridge"
	"github.com/Oct4Pie/toolbridge/internal/translate"
)

// Metrics is the narrow surface the dispatcher reports to; internal/metrics
// implements it.
type Metrics interface {
	ObserveRequest(clientFormat, backendFormat, status string, duration time.Duration)
	IncRetry(backendFormat, reason string)
	IncToolCallDetected(source string)
	IncBufferTruncation()
}

type noopMetrics struct{}

func (noopMetrics) ObserveRequest(string, string, string, time.Duration) {}
func (noopMetrics) IncRetry(string, string)                              {}
func (noopMetrics) IncToolCallDetected(string)                           {}
func (noopMetrics) IncBufferTruncation()                                 {}

// Dispatcher wires the translation engine and backend clients into an
// http.Handler for the chat completion endpoints.
type Dispatcher struct {
	Config       *config.Config
	OpenAIClient *backendclient.Client
	OllamaClient *backendclient.Client
	Logger       *zap.Logger
	Metrics      Metrics
}

// New builds a Dispatcher. metrics may be nil, in which case observations
// are discarded.
func New(cfg *config.Config, openaiClient, ollamaClient *backendclient.Client, logger *zap.Logger, m Metrics) *Dispatcher {
	if m == nil {
		m = noopMetrics{}
	}
	return &Dispatcher{
		Config:       cfg,
		OpenAIClient: openaiClient,
		OllamaClient: ollamaClient,
		Logger:       logger,
		Metrics:      m,
	}
}

// ServeOpenAIChat handles POST /v1/chat/completions.
func (d *Dispatcher) ServeOpenAIChat(w http.ResponseWriter, r *http.Request) {
	d.serveChat(w, r, toolbridge.ProviderOpenAI)
}

// ServeOllamaChat handles POST /api/chat.
func (d *Dispatcher) ServeOllamaChat(w http.ResponseWriter, r *http.Request) {
	d.serveChat(w, r, toolbridge.ProviderOllama)
}

func (d *Dispatcher) serveChat(w http.ResponseWriter, r *http.Request, clientFormat toolbridge.Provider) {
	started := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, int64(d.Config.MaxBufferSize)))
	if err != nil {
		d.writeError(w, errkind.New(errkind.ClientValidation, "failed to read request body", 0), clientFormat, started)
		return
	}

	backendFormat := d.chooseBackendFormat(r)

	g, verr := decodeAndValidate(clientFormat, body)
	if verr != nil {
		d.writeError(w, verr, clientFormat, started)
		return
	}

	timeout := d.Config.ConnectionTimeout
	if g.Stream {
		timeout = d.Config.StreamConnectionTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	knownTools := toolNameSet(g.Tools)

	opts := translate.Options{
		InjectToolInstructions:   d.Config.PassTools,
		ExtractXMLToolCalls:      len(knownTools) > 0,
		ReinjectMessageThreshold: reinjectThreshold(d.Config),
		ReinjectTokenThreshold:   d.Config.ToolReinjectionTokenCount,
		ReinjectRole:             reinjectRole(d.Config),
	}

	targetBody, err := translate.RequestFromGeneric(g, backendFormat, opts)
	if err != nil {
		d.writeError(w, errkind.New(errkind.ClientValidation, err.Error(), 0), clientFormat, started)
		return
	}

	client, chatPath := d.clientFor(backendFormat)

	resp, dispatchErr := client.Post(ctx, chatPath, targetBody, r.Header)
	if dispatchErr != nil && backendFormat == toolbridge.ProviderOpenAI && shouldRetryAgainstOllama(dispatchErr, g.Model) {
		d.Metrics.IncRetry("ollama", "not_a_valid_model_id")
		backendFormat = toolbridge.ProviderOllama
		targetBody, err = translate.RequestFromGeneric(g, backendFormat, opts)
		if err != nil {
			d.writeError(w, errkind.New(errkind.ClientValidation, err.Error(), 0), clientFormat, started)
			return
		}
		client, chatPath = d.clientFor(backendFormat)
		resp, dispatchErr = client.Post(ctx, chatPath, targetBody, r.Header)
	}
	if dispatchErr != nil {
		d.writeError(w, dispatchErr, clientFormat, started)
		return
	}

	if g.Stream {
		d.pumpStream(w, resp, clientFormat, backendFormat, knownTools, started)
		return
	}

	d.writeBatchResponse(w, resp.Body, clientFormat, backendFormat, knownTools, started)
}

func (d *Dispatcher) chooseBackendFormat(r *http.Request) toolbridge.Provider {
	if auth := r.Header.Get("Authorization"); strings.EqualFold(strings.TrimPrefix(auth, "Bearer "), "ollama") {
		return toolbridge.ProviderOllama
	}
	if d.Config.BackendMode == config.BackendOllama {
		return toolbridge.ProviderOllama
	}
	return toolbridge.ProviderOpenAI
}

func (d *Dispatcher) clientFor(p toolbridge.Provider) (*backendclient.Client, string) {
	if p == toolbridge.ProviderOllama {
		return d.OllamaClient, "/api/chat"
	}
	return d.OpenAIClient, d.Config.BackendLLMChatPath
}

func decodeAndValidate(clientFormat toolbridge.Provider, body []byte) (toolbridge.GenericRequest, *errkind.Error) {
	g, err := translate.RequestToGeneric(clientFormat, body)
	if err != nil {
		return toolbridge.GenericRequest{}, errkind.New(errkind.ClientValidation, err.Error(), 0)
	}
	if len(g.Messages) == 0 {
		return toolbridge.GenericRequest{}, errkind.New(errkind.ClientValidation, "messages must be non-empty", 0)
	}
	return g, nil
}

func toolNameSet(tools []toolbridge.Tool) map[string]bool {
	if len(tools) == 0 {
		return nil
	}
	out := make(map[string]bool, len(tools))
	for _, t := range tools {
		out[t.Name] = true
	}
	return out
}

func reinjectThreshold(cfg *config.Config) int {
	if !cfg.EnableToolReinjection {
		return 0
	}
	return cfg.ToolReinjectionMessageCount
}

// reinjectRole maps the configured TOOL_REINJECTION_TYPE to the role
// toolprompt.MaybeReinject should prefer. config.ReinjectUser always wins;
// config.ReinjectSystem (the default) leaves MaybeReinject free to fall
// back to its own system-message-count heuristic.
func reinjectRole(cfg *config.Config) toolbridge.Role {
	if cfg.ToolReinjectionType == config.ReinjectUser {
		return toolbridge.RoleUser
	}
	return toolbridge.RoleSystem
}

// shouldRetryAgainstOllama implements the fallback heuristic from spec.md
// §4.G step 6: an OpenAI-shaped backend rejecting an unqualified model
// name (no "/") likely means it was actually a local Ollama model.
func shouldRetryAgainstOllama(err error, model string) bool {
	kerr, ok := err.(*errkind.Error)
	if !ok {
		return false
	}
	if !strings.Contains(kerr.Message, "not a valid model id") {
		return false
	}
	return !strings.Contains(model, "/")
}

func (d *Dispatcher) writeBatchResponse(w http.ResponseWriter, backendBody []byte, clientFormat, backendFormat toolbridge.Provider, knownTools map[string]bool, started time.Time) {
	out, g, err := translate.TranslateResponse(backendBody, backendFormat, clientFormat, translate.Options{ExtractXMLToolCalls: len(knownTools) > 0}, knownTools, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		d.writeError(w, errkind.New(errkind.BackendUpstream, err.Error(), 0), clientFormat, started)
		return
	}
	if responseHasToolCalls(g.Choices) {
		d.Metrics.IncToolCallDetected(toolCallSource(backendFormat))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
	d.Metrics.ObserveRequest(string(clientFormat), string(backendFormat), "200", time.Since(started))
}

func responseHasToolCalls(choices []toolbridge.Choice) bool {
	for _, c := range choices {
		if c.FinishReason == toolbridge.FinishToolCalls {
			return true
		}
	}
	return false
}

// toolCallSource reports whether a detected tool call most likely came
// over the backend's native tool_calls field or was synthesized from
// injected XML instructions. Only Ollama backends receive XML injection
// (translate.RequestFromGeneric only injects for an Ollama target), so an
// OpenAI backend's tool call is always native.
func toolCallSource(backendFormat toolbridge.Provider) string {
	if backendFormat == toolbridge.ProviderOpenAI {
		return "native"
	}
	return "xml"
}

// pumpStream feeds each backend record through the stream processor and
// flushes client chunks as they're produced. backendclient.Client.Post
// buffers the full backend body before returning (it needs the complete
// response to retry on 5xx/429), so per-chunk latency here reflects the
// processor's work, not true wire-level overlap with the backend;
// getting that overlap would need a non-retrying streaming transport.
func (d *Dispatcher) pumpStream(w http.ResponseWriter, resp *backendclient.Response, clientFormat, backendFormat toolbridge.Provider, knownTools map[string]bool, started time.Time) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		d.writeError(w, errkind.New(errkind.BackendUpstream, "streaming unsupported by response writer", 0), clientFormat, started)
		return
	}

	if clientFormat == toolbridge.ProviderOpenAI {
		w.Header().Set("Content-Type", "text/event-stream")
	} else {
		w.Header().Set("Content-Type", "application/x-ndjson")
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	var emitter stream.Emitter
	if clientFormat == toolbridge.ProviderOpenAI {
		emitter = stream.NewOpenAIEmitter(nil)
	} else {
		emitter = stream.NewOllamaEmitter()
	}
	proc := stream.New("", knownTools, false, d.Config.MaxStreamBufferSize, emitter)

	scanner := bufio.NewScanner(bytes.NewReader(resp.Body))
	scanner.Buffer(make([]byte, 0, 64*1024), d.Config.MaxStreamBufferSize)

	for scanner.Scan() {
		line := scanner.Text()
		generic, ok := decodeBackendStreamLine(backendFormat, line)
		if !ok {
			continue
		}
		for _, out := range proc.Feed(generic) {
			if responseHasToolCalls(out.Choices) {
				d.Metrics.IncToolCallDetected(toolCallSource(backendFormat))
			}
			if !d.writeClientChunk(w, clientFormat, out) {
				proc.Close()
				d.Metrics.ObserveRequest(string(clientFormat), string(backendFormat), "stream_interrupted", time.Since(started))
				return
			}
			flusher.Flush()
		}
	}

	if clientFormat == toolbridge.ProviderOpenAI {
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
	if proc.Truncated() {
		d.Metrics.IncBufferTruncation()
	}
	d.Metrics.ObserveRequest(string(clientFormat), string(backendFormat), "200", time.Since(started))
}

func (d *Dispatcher) writeClientChunk(w http.ResponseWriter, clientFormat toolbridge.Provider, chunk toolbridge.GenericStreamChunk) bool {
	out, err := translate.ResponseFromGenericStreamChunk(chunk, clientFormat, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false
	}
	var werr error
	if clientFormat == toolbridge.ProviderOpenAI {
		_, werr = fmt.Fprintf(w, "data: %s\n\n", out)
	} else {
		_, werr = w.Write(append(out, '\n'))
	}
	return werr == nil
}

func decodeBackendStreamLine(backendFormat toolbridge.Provider, line string) (toolbridge.GenericStreamChunk, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return toolbridge.GenericStreamChunk{}, false
	}
	if backendFormat == toolbridge.ProviderOpenAI {
		line = strings.TrimPrefix(line, "data:")
		line = strings.TrimSpace(line)
		if line == "[DONE]" {
			return toolbridge.GenericStreamChunk{}, false
		}
	}
	chunk, err := translate.StreamChunkToGeneric(backendFormat, []byte(line))
	if err != nil {
		return toolbridge.GenericStreamChunk{}, false
	}
	return chunk, true
}

func (d *Dispatcher) writeError(w http.ResponseWriter, err *errkind.Error, clientFormat toolbridge.Provider, started time.Time) {
	if d.Logger != nil {
		d.Logger.Warn("request failed", zap.String("kind", string(err.Kind)), zap.Int("status", err.Status), zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	body, _ := json.Marshal(map[string]interface{}{"error": err.Message})
	w.Write(body)
	d.Metrics.ObserveRequest(string(clientFormat), "", fmt.Sprintf("%d", err.Status), time.Since(started))
}
