// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/danielhkuo/lumen/cliparse"
	"github.com/danielhkuo/lumen/grok"
	"github.com/danielhkuo/lumen/handlers"
	"github.com/danielhkuo/lumen/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, model grok.Client, personas grok.Personas) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	convHandler := handlers.NewConversationHandler(db, cfg)
	chatHandler := handlers.NewChatHandler(db, cfg, model, personas)
	streamHandler := handlers.NewStreamHandler(db, cfg, model, personas)
	imagineHandler := handlers.NewImagineHandler(db, cfg, model)
	grokpediaHandler := handlers.NewGrokpediaHandler(db, cfg, model, personas)
	projectHandler := handlers.NewProjectHandler(db, cfg)

	// Credential guessing and model spend get separate budgets
	authLimiter := middleware.NewIPLimiter(rate.Limit(1), 5)
	modelLimiter := middleware.NewIPLimiter(rate.Limit(2), 10)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Authentication
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(middleware.WithRateLimit(authLimiter, authHandler.Register)))
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(middleware.WithRateLimit(authLimiter, authHandler.Login)))
	mux.HandleFunc("POST /auth/logout", middleware.WithLogging(authHandler.Logout))
	mux.HandleFunc("GET /auth/me", middleware.WithLogging(authHandler.Me))

	// Conversations (history view is the list ordering)
	mux.HandleFunc("GET /conversations", middleware.WithLogging(convHandler.List))
	mux.HandleFunc("POST /conversations", middleware.WithLogging(convHandler.Create))
	mux.HandleFunc("GET /conversations/{id}", middleware.WithLogging(convHandler.Get))
	mux.HandleFunc("POST /conversations/{id}/rename", middleware.WithLogging(convHandler.Rename))
	mux.HandleFunc("POST /conversations/{id}/project", middleware.WithLogging(convHandler.SetProject))
	mux.HandleFunc("DELETE /conversations/{id}", middleware.WithLogging(convHandler.Delete))

	// Model proxy
	mux.HandleFunc("POST /conversations/{id}/messages", middleware.WithLogging(middleware.WithRateLimit(modelLimiter, chatHandler.SendMessage)))
	mux.HandleFunc("GET /conversations/{id}/stream", streamHandler.Stream)
	mux.HandleFunc("POST /imagine", middleware.WithLogging(middleware.WithRateLimit(modelLimiter, imagineHandler.Imagine)))
	mux.HandleFunc("GET /images/{id}", middleware.WithLogging(imagineHandler.GetImage))
	mux.HandleFunc("POST /grokpedia", middleware.WithLogging(middleware.WithRateLimit(modelLimiter, grokpediaHandler.Ask)))

	// Projects & tasks
	mux.HandleFunc("GET /projects", middleware.WithLogging(projectHandler.List))
	mux.HandleFunc("POST /projects", middleware.WithLogging(projectHandler.Create))
	mux.HandleFunc("GET /projects/{id}", middleware.WithLogging(projectHandler.Get))
	mux.HandleFunc("DELETE /projects/{id}", middleware.WithLogging(projectHandler.Delete))
	mux.HandleFunc("POST /projects/{id}/tasks", middleware.WithLogging(projectHandler.CreateTask))
	mux.HandleFunc("POST /tasks/{id}/complete", middleware.WithLogging(projectHandler.CompleteTask))
	mux.HandleFunc("POST /tasks/{id}/reopen", middleware.WithLogging(projectHandler.ReopenTask))
	mux.HandleFunc("DELETE /tasks/{id}", middleware.WithLogging(projectHandler.DeleteTask))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("lumen API v1"))
	})

	return mux
}
