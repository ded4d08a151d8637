package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Manager loads a configuration snapshot once and hands it out read-only.
// There is deliberately no Watch/Reload: the concurrency model treats the
// configuration as immutable for the lifetime of the process.
type Manager interface {
	Load(ctx context.Context) error
	Get(ctx context.Context) *Config
	Validate(ctx context.Context) error
}

// viperManager implements Manager on top of spf13/viper.
type viperManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
}

// NewManager constructs a Manager that will read configPath (if it exists)
// plus environment variables when Load is called. configPath may be empty,
// in which case only defaults and environment variables apply.
func NewManager(configPath string) (Manager, error) {
	return &viperManager{configPath: configPath}, nil
}

// NewManagerWithDefaults builds a Manager reading from the conventional
// ./config.yaml path.
func NewManagerWithDefaults() (Manager, error) {
	return NewManager("config.yaml")
}

func (m *viperManager) Load(ctx context.Context) error {
	m.viper = viper.New()
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
		m.viper.SetConfigType("yaml")
		if err := m.viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				// Optional file: fall through to defaults + env.
			} else if os.IsNotExist(err) {
				// Optional file: fall through to defaults + env.
			} else {
				return fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	m.setDefaults()
	m.config = m.unmarshal()
	return nil
}

func (m *viperManager) Get(ctx context.Context) *Config {
	return m.config
}

func (m *viperManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (m *viperManager) setDefaults() {
	d := DefaultConfig()

	m.viper.SetDefault("BACKEND_MODE", string(d.BackendMode))
	m.viper.SetDefault("BACKEND_LLM_BASE_URL", d.BackendLLMBaseURL)
	m.viper.SetDefault("BACKEND_LLM_CHAT_PATH", d.BackendLLMChatPath)
	m.viper.SetDefault("BACKEND_LLM_API_KEY", d.BackendLLMAPIKey)
	m.viper.SetDefault("OLLAMA_BASE_URL", d.OllamaBaseURL)

	m.viper.SetDefault("PROXY_HOST", d.ProxyHost)
	m.viper.SetDefault("PROXY_PORT", d.ProxyPort)

	m.viper.SetDefault("PASS_TOOLS", d.PassTools)
	m.viper.SetDefault("ENABLE_TOOL_REINJECTION", d.EnableToolReinjection)
	m.viper.SetDefault("TOOL_REINJECTION_MESSAGE_COUNT", d.ToolReinjectionMessageCount)
	m.viper.SetDefault("TOOL_REINJECTION_TOKEN_COUNT", d.ToolReinjectionTokenCount)
	m.viper.SetDefault("TOOL_REINJECTION_TYPE", string(d.ToolReinjectionType))
	m.viper.SetDefault("MAX_TOOL_ITERATIONS", d.MaxToolIterations)

	m.viper.SetDefault("MAX_BUFFER_SIZE", d.MaxBufferSize)
	m.viper.SetDefault("CONNECTION_TIMEOUT", int(d.ConnectionTimeout.Seconds()))
	m.viper.SetDefault("MAX_STREAM_BUFFER_SIZE", d.MaxStreamBufferSize)
	m.viper.SetDefault("STREAM_CONNECTION_TIMEOUT", int(d.StreamConnectionTimeout.Seconds()))

	m.viper.SetDefault("DEBUG_MODE", d.DebugMode)

	m.viper.SetDefault("LOG_LEVEL", d.LogLevel)
	m.viper.SetDefault("LOG_PATH", d.LogPath)
}

func (m *viperManager) unmarshal() *Config {
	return &Config{
		BackendMode:        BackendMode(m.viper.GetString("BACKEND_MODE")),
		BackendLLMBaseURL:  m.viper.GetString("BACKEND_LLM_BASE_URL"),
		BackendLLMChatPath: m.viper.GetString("BACKEND_LLM_CHAT_PATH"),
		BackendLLMAPIKey:   m.viper.GetString("BACKEND_LLM_API_KEY"),
		OllamaBaseURL:      m.viper.GetString("OLLAMA_BASE_URL"),

		ProxyHost: m.viper.GetString("PROXY_HOST"),
		ProxyPort: m.viper.GetInt("PROXY_PORT"),

		PassTools:                   m.viper.GetBool("PASS_TOOLS"),
		EnableToolReinjection:       m.viper.GetBool("ENABLE_TOOL_REINJECTION"),
		ToolReinjectionMessageCount: m.viper.GetInt("TOOL_REINJECTION_MESSAGE_COUNT"),
		ToolReinjectionTokenCount:   m.viper.GetInt("TOOL_REINJECTION_TOKEN_COUNT"),
		ToolReinjectionType:         ToolReinjectionType(m.viper.GetString("TOOL_REINJECTION_TYPE")),
		MaxToolIterations:           m.viper.GetInt("MAX_TOOL_ITERATIONS"),

		MaxBufferSize:           m.viper.GetInt("MAX_BUFFER_SIZE"),
		ConnectionTimeout:       time.Duration(m.viper.GetInt("CONNECTION_TIMEOUT")) * time.Second,
		MaxStreamBufferSize:     m.viper.GetInt("MAX_STREAM_BUFFER_SIZE"),
		StreamConnectionTimeout: time.Duration(m.viper.GetInt("STREAM_CONNECTION_TIMEOUT")) * time.Second,

		DebugMode: m.viper.GetBool("DEBUG_MODE"),

		LogLevel: m.viper.GetString("LOG_LEVEL"),
		LogPath:  m.viper.GetString("LOG_PATH"),
	}
}
