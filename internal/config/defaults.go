package config

// FallbackReply is what the user receives when every strategy comes back empty.
const FallbackReply = "Posso aiutarti, puoi riformulare la domanda?"

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Agent: AgentConfig{
			APIBase:        "https://api.elevenlabs.io",
			Strategies:     []string{"stream", "simulate"},
			StreamTimeout:  12,
			RequestTimeout: 15,
			SessionTTL:     24 * 60,
			FallbackReply:  FallbackReply,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
