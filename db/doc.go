// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema

Seven tables back the API:

  - users: accounts with bcrypt password hashes
  - session: bearer-token sessions (tokens stored as HMAC hashes)
  - project: per-user project groupings
  - task: project tasks with open/done lifecycle
  - conversation: per-user threads (chat, voice, imagine, grokpedia)
  - message: ordered conversation entries keyed by (conversation_id, seq)
  - image: generated images (base64 payload plus prompt)

# Usage

	if err := db.CreateSchema(dbConn); err != nil {
		// handle error
	}

CreateSchema is idempotent - it uses IF NOT EXISTS for all tables and
indexes, so it's safe to call on every server start.

# Portability

The DDL sticks to the PostgreSQL/SQLite common subset: TEXT keys,
CURRENT_TIMESTAMP defaults, CHECK constraints. Row timestamps are always
supplied by the application so both engines store identical values.
*/
package db
