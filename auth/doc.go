// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides password hashing, token generation, and token hashing.

# Passwords

Passwords are hashed with bcrypt at the default cost:

	hash, err := auth.HashPassword(password)
	err = auth.CheckPassword(hash, password) // ErrInvalidCredentials on mismatch

# Session Tokens

Bearer tokens are 192-bit random values, URL-safe base64 encoded:

	token, err := auth.GenerateSessionToken()

Only the HMAC-SHA256 hash of a token is stored server-side:

	stored := auth.HashToken(token, cfg.TokenSalt)

Lookup is deterministic (same token + salt always gives the same hash),
so verifying a bearer token is a single indexed SELECT on session.token_hash.

# IDs

Row IDs are random hex strings:

	id, err := auth.GenerateID(16) // 32 hex chars

# IP Hashing

For privacy, client IPs are never stored raw:

	hash := auth.HashIP(ip, salt) // 16 hex chars, salted HMAC
*/
package auth
