// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package grok wraps the third-party generative model API.

# Client

HTTPClient talks to an OpenAI-compatible endpoint (xAI shape) with a
bearer API key:

	client := grok.NewHTTPClient(grok.Config{
		APIKey:     cfg.XAIAPIKey,
		BaseURL:    cfg.XAIBaseURL,
		ChatModel:  cfg.ChatModel,
		ImageModel: cfg.ImageModel,
	})

	reply, err := client.Chat(ctx, systemPrompt, history)
	img, err := client.GenerateImage(ctx, prompt)

Handlers depend on the Client interface, so tests substitute a fake
without network access.

# Request Behavior

  - Request timeout applied when the context has no deadline
  - Minimum 100ms spacing between requests
  - Up to 3 retries with exponential backoff on 429 and transport errors
  - Other non-200 statuses fail immediately with the response body

# Personas

Each conversation kind carries a system prompt. Defaults are compiled in;
a TOML file given via -personas / PERSONA_FILE overrides individual keys:

	chat = "You are ..."
	grokpedia = "You write ..."
*/
package grok
