// Package config loads the clawgate configuration: a JSON file with
// ${ENV_VAR} substitution, then environment variable overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v11"
)

type LLMConfig struct {
	Model       string  `json:"model" env:"CLAWGATE_LLM_MODEL"`
	APIKey      string  `json:"api_key" env:"CLAWGATE_LLM_API_KEY"`
	BaseURL     string  `json:"base_url" env:"CLAWGATE_LLM_BASE_URL"`
	MaxTokens   int     `json:"max_tokens" env:"CLAWGATE_LLM_MAX_TOKENS"`
	Temperature float64 `json:"temperature" env:"CLAWGATE_LLM_TEMPERATURE"`
}

type GatewayConfig struct {
	Host              string `json:"host" env:"CLAWGATE_GATEWAY_HOST"`
	Port              int    `json:"port" env:"CLAWGATE_GATEWAY_PORT"`
	AuthToken         string `json:"auth_token" env:"CLAWGATE_GATEWAY_AUTH_TOKEN"`
	RequestsPerMinute int    `json:"requests_per_minute" env:"CLAWGATE_GATEWAY_REQUESTS_PER_MINUTE"`
}

type AgentConfig struct {
	ID                  string `json:"id" env:"CLAWGATE_AGENT_ID"`
	Workspace           string `json:"workspace" env:"CLAWGATE_AGENT_WORKSPACE"`
	SystemPrompt        string `json:"system_prompt" env:"CLAWGATE_AGENT_SYSTEM_PROMPT"`
	MaxSessions         int    `json:"max_sessions" env:"CLAWGATE_AGENT_MAX_SESSIONS"`
	MaxToolIterations   int    `json:"max_tool_iterations" env:"CLAWGATE_AGENT_MAX_TOOL_ITERATIONS"`
	RestrictToWorkspace bool   `json:"restrict_to_workspace" env:"CLAWGATE_AGENT_RESTRICT_TO_WORKSPACE"`
}

type ToolsConfig struct {
	Deny        []string `json:"deny" env:"CLAWGATE_TOOLS_DENY"`
	Allow       []string `json:"allow" env:"CLAWGATE_TOOLS_ALLOW"`
	ExecTimeout int      `json:"exec_timeout" env:"CLAWGATE_TOOLS_EXEC_TIMEOUT"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled" env:"CLAWGATE_CHANNELS_TELEGRAM_ENABLED"`
	Token     string   `json:"token" env:"CLAWGATE_CHANNELS_TELEGRAM_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"CLAWGATE_CHANNELS_TELEGRAM_ALLOW_FROM"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type CronJobConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Kind     string `json:"kind,omitempty"` // agentTurn | message
	Prompt   string `json:"prompt,omitempty"`
	Message  string `json:"message,omitempty"`
	Channel  string `json:"channel,omitempty"`
	To       string `json:"to,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" env:"CLAWGATE_LOG_LEVEL"`
	File  string `json:"file" env:"CLAWGATE_LOG_FILE"`
}

type Config struct {
	LLM      LLMConfig       `json:"llm"`
	Gateway  GatewayConfig   `json:"gateway"`
	Agent    AgentConfig     `json:"agent"`
	Tools    ToolsConfig     `json:"tools"`
	Channels ChannelsConfig  `json:"channels"`
	CronJobs []CronJobConfig `json:"cron_jobs,omitempty"`
	Log      LogConfig       `json:"log"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		LLM: LLMConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18789,
		},
		Agent: AgentConfig{
			ID:                "main",
			Workspace:         filepath.Join(home, ".clawgate", "workspace"),
			MaxSessions:       1000,
			MaxToolIterations: 10,
		},
		Tools: ToolsConfig{
			ExecTimeout: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ResolveConfigPath returns the config file path: $CLAWGATE_CONFIG if set,
// otherwise ~/.clawgate/clawgate.json.
func ResolveConfigPath() string {
	if p := os.Getenv("CLAWGATE_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".clawgate", "clawgate.json")
}

// LoadConfig reads the config file at path (defaults apply when the file
// does not exist), substitutes ${ENV_VAR} references in the raw bytes,
// then applies CLAWGATE_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		substituted := substituteEnvVars(string(data))
		if err := json.Unmarshal([]byte(substituted), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func substituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[2 : len(match)-1]
		return os.Getenv(name)
	})
}

// Sanitized returns the reflection view served by /v1/config and the WS
// config.get method. It never contains secrets.
func (c *Config) Sanitized() map[string]any {
	return map[string]any{
		"gateway": map[string]any{
			"host": c.Gateway.Host,
			"port": c.Gateway.Port,
			"auth": c.Gateway.AuthToken != "",
		},
		"model":     c.LLM.Model,
		"workspace": c.Agent.Workspace,
		"agent":     c.Agent.ID,
		"channels": map[string]any{
			"telegram": c.Channels.Telegram.Enabled,
		},
	}
}
