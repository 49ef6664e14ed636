package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"chatbridge/internal/agent"
	"chatbridge/internal/chatwoot"
	"chatbridge/internal/config"
	"chatbridge/internal/relay"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "chatbridge",
		Short:   "chatbridge: Chatwoot webhook to conversational-agent relay",
		Long:    "chatbridge relays incoming Chatwoot messages to a conversational-AI agent service and posts the reply back, so it reaches the user over WhatsApp.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (optional; environment variables take precedence)")

	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig assembles the effective configuration: defaults, then the
// optional config file, then the environment on top.
func loadConfig() *config.Config {
	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Defaults()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			logger.Warn("config file not usable, continuing with defaults", "path", configPath, "err", err)
		} else {
			cfg = loaded
		}
	}
	config.FromEnv(cfg)
	return cfg
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook relay server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger = newLogger(cfg.Logging.Level)

	// Missing settings warn at startup; the affected calls fail lazily per
	// request instead of blocking the process.
	for _, warn := range config.Warnings(cfg) {
		logger.Warn(warn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := agent.NewFactory(cfg.Agent, logger)
	chain := factory.Chain()
	logger.Info("reply strategies ready", "chain", chain.Name())

	go factory.Sessions().Janitor(ctx, 10*time.Minute)

	poster := chatwoot.New(chatwoot.Config{
		BaseURL:   cfg.Chatwoot.BaseURL,
		AccountID: cfg.Chatwoot.AccountID,
		APIToken:  cfg.Chatwoot.APIToken,
		Timeout:   time.Duration(cfg.Agent.RequestTimeout) * time.Second,
		Logger:    logger,
	})

	rl := relay.New(relay.Config{
		Replies:  chain,
		Poster:   poster,
		Fallback: cfg.Agent.FallbackReply,
		Logger:   logger,
	})

	srv := relay.NewServer(relay.ServerConfig{
		Host:   cfg.Server.Host,
		Port:   cfg.Server.Port,
		Relay:  rl,
		Logger: logger,
	})

	return srv.Start(ctx)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and strategy health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			for _, warn := range config.Warnings(cfg) {
				logger.Warn(warn)
			}
			logger.Info("chatwoot", "configured", cfg.Chatwoot.BaseURL != "" && cfg.Chatwoot.APIToken != "")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			factory := agent.NewFactory(cfg.Agent, logger)
			for _, p := range factory.Chain().Providers() {
				if err := p.Healthy(ctx); err != nil {
					logger.Warn("strategy unhealthy", "strategy", p.Name(), "err", err)
				} else {
					logger.Info("strategy ready", "strategy", p.Name())
				}
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			data, err := yaml.Marshal(config.Sanitize(cfg))
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config file path in use",
		Run: func(cmd *cobra.Command, args []string) {
			if configPath == "" {
				fmt.Println("(environment only)")
				return
			}
			fmt.Println(configPath)
		},
	})

	return cmd
}
