package config

import "time"

const defaultProxyHost = "0.0.0.0"

// DefaultConfig returns a configuration with every field set to its
// documented default, matching spec.md §6's bounds (1 MiB tool-call buffer,
// 120s backend connection timeout, 50 MiB request body).
func DefaultConfig() *Config {
	return &Config{
		BackendMode:        BackendOpenAI,
		BackendLLMBaseURL:  "",
		BackendLLMChatPath: "/chat/completions",
		BackendLLMAPIKey:   "",
		OllamaBaseURL:      "http://localhost:11434",

		ProxyHost: defaultProxyHost,
		ProxyPort: 8080,

		PassTools:                   true,
		EnableToolReinjection:       true,
		ToolReinjectionMessageCount: 3,
		ToolReinjectionTokenCount:   1000,
		ToolReinjectionType:         ReinjectSystem,
		MaxToolIterations:           5,

		MaxBufferSize:           50 * 1024 * 1024,
		ConnectionTimeout:       120 * time.Second,
		MaxStreamBufferSize:     1024 * 1024,
		StreamConnectionTimeout: 120 * time.Second,

		DebugMode: false,

		LogLevel: "info",
		LogPath:  "",
	}
}
