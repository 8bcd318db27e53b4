// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Lumen API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - AuthHandler: Registration, login, logout, session lookup
  - ConversationHandler: Conversation CRUD and history listing
  - ChatHandler: The chat request/response cycle (model proxy)
  - StreamHandler: Websocket chat with progressive delivery
  - ImagineHandler: Image generation and retrieval
  - GrokpediaHandler: One-shot encyclopedia answers
  - ProjectHandler: Projects and tasks

Handlers are created via constructor functions; the ones that talk to
the model additionally take a grok.Client and grok.Personas:

	chatHandler := handlers.NewChatHandler(db, cfg, model, personas)

# Authentication

All routes except register/login/health use bearer tokens:

	user, err := handlers.RequireUser(db, cfg, r)

RequireUser hashes the presented token, resolves the session, rejects
expired sessions (deleting them), and bumps last_seen_at. Ownership
checks answer 404 rather than 403 so resource IDs cannot be probed.

# The Chat Cycle

SendMessage is a deliberate pass-through: store the user message,
accumulate the ordered history, prepend the kind's system prompt,
forward to the model, store the reply. On model failure the user
message stays persisted and the client gets 502; no assistant row is
written. The first prompt of an untitled conversation becomes its title.

# Ordering

Messages carry a per-conversation seq assigned MAX+1 under a UNIQUE
(conversation_id, seq) constraint, so history replayed to the model is
always in insertion order regardless of timestamp resolution.
*/
package handlers
