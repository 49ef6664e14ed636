package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for chatbridge.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Chatwoot ChatwootConfig `yaml:"chatwoot"`
	Agent    AgentConfig    `yaml:"agent"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ChatwootConfig holds the messaging-platform API settings used by the poster.
type ChatwootConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	AccountID string `yaml:"accountId"`
	APIToken  string `yaml:"apiToken"`
}

// AgentConfig holds the agent-service settings shared by all reply strategies.
type AgentConfig struct {
	APIBase        string   `yaml:"apiBase"`
	APIKey         string   `yaml:"apiKey"`
	AgentID        string   `yaml:"agentId"`
	StreamURL      string   `yaml:"streamUrl,omitempty"`  // streaming session endpoint (ws:// or wss://)
	Strategies     []string `yaml:"strategies,omitempty"` // reply strategy priority order
	StreamTimeout  int      `yaml:"streamTimeoutSeconds,omitempty"`
	RequestTimeout int      `yaml:"requestTimeoutSeconds,omitempty"`
	SessionTTL     int      `yaml:"sessionTtlMinutes,omitempty"`
	FallbackReply  string   `yaml:"fallbackReply,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// knownStrategies are the reply strategies the agent package implements.
var knownStrategies = map[string]bool{
	"stream":       true,
	"simulate":     true,
	"respond":      true,
	"conversation": true,
}

// Load reads a YAML config file, expanding ${VAR} and ${VAR:-default}
// references before parsing. Values start from Defaults().
func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// FromEnv overlays the deployment environment variables onto cfg.
// Environment values win over file values; unset variables leave cfg untouched.
func FromEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	setString(&cfg.Chatwoot.BaseURL, "CW_BASE")
	setString(&cfg.Chatwoot.AccountID, "CW_ACCOUNT_ID")
	setString(&cfg.Chatwoot.APIToken, "CW_API_TOKEN")
	setString(&cfg.Agent.APIKey, "ELEVEN_API_KEY")
	setString(&cfg.Agent.AgentID, "ELEVEN_AGENT_ID")
	setString(&cfg.Agent.APIBase, "AGENT_API_BASE")
	setString(&cfg.Agent.StreamURL, "AGENT_STREAM_URL")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	if v := os.Getenv("AGENT_STRATEGIES"); v != "" {
		var strategies []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				strategies = append(strategies, s)
			}
		}
		if len(strategies) > 0 {
			cfg.Agent.Strategies = strategies
		}
	}
}

// Warnings returns the list of missing required settings. The process still
// starts with them absent; the affected outbound calls fail lazily instead.
func Warnings(cfg *Config) []string {
	var warns []string
	if cfg.Chatwoot.BaseURL == "" || cfg.Chatwoot.AccountID == "" || cfg.Chatwoot.APIToken == "" {
		warns = append(warns, "chatwoot settings incomplete (CW_BASE/CW_ACCOUNT_ID/CW_API_TOKEN)")
	}
	if cfg.Agent.APIKey == "" || cfg.Agent.AgentID == "" {
		warns = append(warns, "agent settings incomplete (ELEVEN_API_KEY/ELEVEN_AGENT_ID)")
	}
	return warns
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if cfg.Agent.StreamTimeout < 1 {
		errs = append(errs, "agent.streamTimeoutSeconds must be >= 1")
	}
	if cfg.Agent.RequestTimeout < 1 {
		errs = append(errs, "agent.requestTimeoutSeconds must be >= 1")
	}
	if cfg.Agent.SessionTTL < 1 {
		errs = append(errs, "agent.sessionTtlMinutes must be >= 1")
	}
	for _, name := range cfg.Agent.Strategies {
		if !knownStrategies[name] {
			errs = append(errs, fmt.Sprintf("agent.strategies references unknown strategy: %s", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Sanitize returns a copy of cfg with secrets masked, for display.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Chatwoot.APIToken = mask(cfg.Chatwoot.APIToken)
	out.Agent.APIKey = mask(cfg.Agent.APIKey)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
