// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - RegisterRequest / LoginRequest: username, password
  - CreateConversationRequest: title, kind
  - SendMessageRequest: content
  - ImagineRequest: prompt, optional conversation_id
  - GrokpediaRequest: query
  - CreateProjectRequest: name, description
  - CreateTaskRequest: title

# Response Types

Types for JSON responses:

  - AuthResponse: token, user, expires_at
  - SendMessageResponse: user_message, assistant_message, title
  - ImagineResponse: conversation_id, message, image_id
  - GrokpediaResponse: conversation_id, title, article
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - User: account with bcrypt password hash
  - Session: bearer-token session with expiry
  - Conversation: per-user thread with a kind and optional project link
  - Message: ordered conversation entry (user/assistant/system)
  - Image: generated image bytes with prompt
  - Project: per-user grouping of tasks and conversations
  - Task: project item with open/done lifecycle

# Constants

Conversation kinds:

	KindChat      = "chat"
	KindVoice     = "voice"
	KindImagine   = "imagine"
	KindGrokpedia = "grokpedia"

Message roles:

	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

Task status:

	TaskOpen = "open"
	TaskDone = "done"
*/
package models
