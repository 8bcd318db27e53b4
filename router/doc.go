// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the HTTP route table.

# Routes

Uses Go 1.22+ method-pattern routing on a plain ServeMux:

	GET  /health
	POST /auth/register            rate limited
	POST /auth/login               rate limited
	POST /auth/logout
	GET  /auth/me
	GET  /conversations
	POST /conversations
	GET  /conversations/{id}
	POST /conversations/{id}/rename
	POST /conversations/{id}/project
	DELETE /conversations/{id}
	POST /conversations/{id}/messages   rate limited (model spend)
	GET  /conversations/{id}/stream     websocket
	POST /imagine                       rate limited (model spend)
	GET  /images/{id}
	POST /grokpedia                     rate limited (model spend)
	GET  /projects
	POST /projects
	GET  /projects/{id}
	DELETE /projects/{id}
	POST /projects/{id}/tasks
	POST /tasks/{id}/complete
	POST /tasks/{id}/reopen
	DELETE /tasks/{id}

The stream route skips WithLogging: a websocket lives for the whole
session and per-request duration logging would be noise.

# Usage

	mux := router.NewRouter(db, cfg, model, personas)
	server := http.Server{Handler: middleware.CORS(mux), Addr: ":3646"}
*/
package router
