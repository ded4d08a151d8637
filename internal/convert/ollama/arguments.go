package ollama

import "encoding/json"

// marshalArguments renders a decoded tool-call argument object into the
// JSON string OpenAI-shaped clients expect in function.arguments.
func marshalArguments(args map[string]interface{}) string {
	if args == nil {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// unmarshalArguments decodes an OpenAI-shaped JSON arguments string back
// into the object Ollama's native tool_calls[].function.arguments expects.
func unmarshalArguments(s string) map[string]interface{} {
	if s == "" {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
