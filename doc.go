// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Lumen API server.

Lumen is the backend for a chat-assistant web app: it persists users,
conversations, messages, projects, and tasks, and proxies prompts to a
third-party generative model API (xAI shape) for text and image replies.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=lumen.db TOKEN_SALT=... XAI_API_KEY=... go run main.go

Or with flags:

	go run main.go -p 3646 -d lumen.db -token-salt ... -api-key ...

A .env file in the working directory is loaded automatically.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - TOKEN_SALT (-token-salt): Secret for session token hashing
  - XAI_API_KEY (-api-key): Model API key

Optional settings:

  - PORT (-p): Server port (default: 3646)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - XAI_BASE_URL (-api-base): Model API base URL
  - CHAT_MODEL / IMAGE_MODEL: Model names
  - PERSONA_FILE (-personas): TOML system prompt overrides

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (auth, conversations, chat, stream,
    imagine, grokpedia, projects)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, rate limiting, JSON helpers
  - models: Request/response types
  - auth: Password hashing and token generation/verification
  - grok: Model API client and persona prompts
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
