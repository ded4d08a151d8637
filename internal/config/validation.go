package config

import "fmt"

// ValidationError represents one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for internal consistency. It never
// touches the network or filesystem — BACKEND_LLM_BASE_URL is only checked
// for presence; it is neither parsed as a URL nor dialed.
func (c *Config) Validate() []error {
	var errs []error

	switch c.BackendMode {
	case BackendOpenAI, BackendOllama:
	default:
		errs = append(errs, &ValidationError{
			Field:   "BACKEND_MODE",
			Message: fmt.Sprintf("must be one of: openai, ollama; got %q", c.BackendMode),
		})
	}

	if c.BackendMode == BackendOpenAI && c.BackendLLMBaseURL == "" {
		errs = append(errs, &ValidationError{
			Field:   "BACKEND_LLM_BASE_URL",
			Message: "required when BACKEND_MODE=openai",
		})
	}

	if c.BackendLLMChatPath == "" {
		errs = append(errs, &ValidationError{
			Field:   "BACKEND_LLM_CHAT_PATH",
			Message: "must not be empty",
		})
	}

	if c.BackendMode == BackendOllama && c.OllamaBaseURL == "" {
		errs = append(errs, &ValidationError{
			Field:   "OLLAMA_BASE_URL",
			Message: "required when BACKEND_MODE=ollama",
		})
	}

	if c.ProxyPort < 1 || c.ProxyPort > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "PROXY_PORT",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.ProxyPort),
		})
	}

	switch c.ToolReinjectionType {
	case ReinjectSystem, ReinjectUser:
	default:
		errs = append(errs, &ValidationError{
			Field:   "TOOL_REINJECTION_TYPE",
			Message: fmt.Sprintf("must be one of: system, user; got %q", c.ToolReinjectionType),
		})
	}

	if c.ToolReinjectionMessageCount < 0 {
		errs = append(errs, &ValidationError{
			Field:   "TOOL_REINJECTION_MESSAGE_COUNT",
			Message: "must not be negative",
		})
	}

	if c.ToolReinjectionTokenCount < 0 {
		errs = append(errs, &ValidationError{
			Field:   "TOOL_REINJECTION_TOKEN_COUNT",
			Message: "must not be negative",
		})
	}

	if c.MaxToolIterations < 1 {
		errs = append(errs, &ValidationError{
			Field:   "MAX_TOOL_ITERATIONS",
			Message: fmt.Sprintf("must be at least 1, got %d", c.MaxToolIterations),
		})
	}

	if c.MaxBufferSize < 1 {
		errs = append(errs, &ValidationError{
			Field:   "MAX_BUFFER_SIZE",
			Message: "must be positive",
		})
	}

	if c.MaxStreamBufferSize < 1 {
		errs = append(errs, &ValidationError{
			Field:   "MAX_STREAM_BUFFER_SIZE",
			Message: "must be positive",
		})
	}

	if c.ConnectionTimeout <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "CONNECTION_TIMEOUT",
			Message: "must be positive",
		})
	}

	if c.StreamConnectionTimeout <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "STREAM_CONNECTION_TIMEOUT",
			Message: "must be positive",
		})
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error; got %q", c.LogLevel),
		})
	}

	return errs
}
