// Package capability implements the static per-target-provider field drop
// table (component 4.I): before a generic request is converted into a
// target wire shape, fields the target cannot honor are stripped.
package capability

import "github.com/Oct4Pie/toolbridge/internal/toolbridge"

// Filter returns a copy of req with fields the target provider cannot
// honor removed. OpenAI targets pass every field through; Ollama targets
// drop response_format, stream_options.include_usage, seed, and n.
func Filter(req toolbridge.GenericRequest, target toolbridge.Provider) toolbridge.GenericRequest {
	out := req
	switch target {
	case toolbridge.ProviderOllama:
		out.ResponseFormat = nil
		out.StreamOptions = toolbridge.StreamOptions{}
		out.Seed = nil
		out.N = nil
		if out.Extensions != nil {
			ext := make(map[string]interface{}, len(out.Extensions))
			for k, v := range out.Extensions {
				if k == "logprobs" {
					continue
				}
				ext[k] = v
			}
			out.Extensions = ext
		}
	case toolbridge.ProviderOpenAI:
		// Pass through unchanged.
	}
	return out
}
