// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and request/response helpers.

# Middleware

  - WithLogging: logs request start/completion with duration
  - WithRateLimit: per-IP token bucket (golang.org/x/time/rate), 429 over budget
  - CORS: allows cross-origin requests from the frontend

# Helpers

  - JSONResponse: writes a JSON body with status code
  - ErrorResponse: writes a models.ErrorResponse
  - ParseJSONBody: decodes a request body into a struct
  - BearerToken: extracts an Authorization: Bearer token (or ?token= for websockets)
  - GetClientIP: resolves the client IP through proxy headers

# Usage

	limiter := middleware.NewIPLimiter(rate.Limit(5), 10)
	mux.HandleFunc("POST /auth/login",
		middleware.WithLogging(middleware.WithRateLimit(limiter, h.Login)))
*/
package middleware
