// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3646)
  - DatabaseURL: Connection string (required)
  - DatabaseType: "sqlite" or "postgres" (default: sqlite)
  - TokenSalt: Secret for session token hashing (required)
  - XAIAPIKey: Model API key (required)
  - XAIBaseURL: Model API base URL (default: https://api.x.ai/v1)
  - ChatModel: Chat completion model (default: grok-2-latest)
  - ImageModel: Image generation model (default: grok-2-image)
  - PersonaFile: Optional TOML file overriding system prompts

# CLI Flags

	-p            Server port
	-d            Database URL
	-t            Database type
	-token-salt   Session token salt
	-api-key      Model API key
	-api-base     Model API base URL
	-chat-model   Chat model name
	-image-model  Image model name
	-personas     Persona TOML file path

# Environment Variables

Flags fall back to environment variables:

	PORT          → -p
	DATABASE_URL  → -d
	DATABASE_TYPE → -t
	TOKEN_SALT    → -token-salt
	XAI_API_KEY   → -api-key
	XAI_BASE_URL  → -api-base
	CHAT_MODEL    → -chat-model
	IMAGE_MODEL   → -image-model
	PERSONA_FILE  → -personas

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - TOKEN_SALT must be provided
  - XAI_API_KEY must be provided
  - DATABASE_TYPE, when set, must be sqlite or postgres
*/
package cliparse
