package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	TokenSalt    string
	XAIAPIKey    string
	XAIBaseURL   string
	ChatModel    string
	ImageModel   string
	PersonaFile  string
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("lumen", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Model API config
	fs.StringVar(&cfg.XAIBaseURL, "api-base", "", "Model API base URL")
	fs.StringVar(&cfg.ChatModel, "chat-model", "", "Model name for chat completions")
	fs.StringVar(&cfg.ImageModel, "image-model", "", "Model name for image generation")
	fs.StringVar(&cfg.PersonaFile, "personas", "", "Optional TOML file overriding system prompts")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TokenSalt, "token-salt", "", "Session token salt (prefer env)")
	fs.StringVar(&cfg.XAIAPIKey, "api-key", "", "Model API key (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3646 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.XAIBaseURL == "" {
		cfg.XAIBaseURL = os.Getenv("XAI_BASE_URL")
		if cfg.XAIBaseURL == "" {
			cfg.XAIBaseURL = "https://api.x.ai/v1"
		}
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = os.Getenv("CHAT_MODEL")
		if cfg.ChatModel == "" {
			cfg.ChatModel = "grok-2-latest"
		}
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = os.Getenv("IMAGE_MODEL")
		if cfg.ImageModel == "" {
			cfg.ImageModel = "grok-2-image"
		}
	}
	if cfg.PersonaFile == "" {
		cfg.PersonaFile = os.Getenv("PERSONA_FILE")
	}

	// Secrets - MUST be provided
	if cfg.TokenSalt == "" {
		cfg.TokenSalt = os.Getenv("TOKEN_SALT")
	}
	if cfg.TokenSalt == "" {
		return Config{}, errors.New("TOKEN_SALT required")
	}

	if cfg.XAIAPIKey == "" {
		cfg.XAIAPIKey = os.Getenv("XAI_API_KEY")
	}
	if cfg.XAIAPIKey == "" {
		return Config{}, errors.New("XAI_API_KEY required")
	}

	return cfg, nil
}
