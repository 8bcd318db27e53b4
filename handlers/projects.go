// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/lumen/auth"
	"github.com/danielhkuo/lumen/cliparse"
	"github.com/danielhkuo/lumen/middleware"
	"github.com/danielhkuo/lumen/models"
)

type ProjectHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewProjectHandler(db *sql.DB, cfg cliparse.Config) *ProjectHandler {
	return &ProjectHandler{db: db, cfg: cfg}
}

// List handles GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	rows, err := h.db.Query(`
		SELECT
			p.id, p.name, p.description, p.created_at,
			(SELECT COUNT(*) FROM task t WHERE t.project_id = p.id) as task_count,
			(SELECT COUNT(*) FROM task t WHERE t.project_id = p.id AND t.status = 'done') as done_count
		FROM project p
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`, user.ID)
	if err != nil {
		slog.Error("failed to query projects", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	projects := []models.ProjectSummary{}
	for rows.Next() {
		var p models.ProjectSummary
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &p.CreatedAt, &p.TaskCount, &p.DoneCount); err != nil {
			slog.Error("failed to scan project", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		p.Description = description.String
		p.UserID = user.ID
		projects = append(projects, p)
	}

	middleware.JSONResponse(w, http.StatusOK, models.ProjectListResponse{Projects: projects})
}

// Create handles POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req models.CreateProjectRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	projectID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate project ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	now := time.Now()
	_, err = h.db.Exec(`
		INSERT INTO project (id, user_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, projectID, user.ID, req.Name, req.Description, now)
	if err != nil {
		slog.Error("failed to insert project", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	slog.Info("project created", "project_id", projectID, "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.Project{
		ID:          projectID,
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
	})
}

// Get handles GET /projects/{id}
// Returns the project with its tasks and linked conversations.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	project, err := h.loadProject(user.ID, r.PathValue("id"))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		slog.Error("failed to query project", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	tasks, err := h.projectTasks(project.ID)
	if err != nil {
		slog.Error("failed to query tasks", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	conversations, err := h.projectConversations(project.ID, user.ID)
	if err != nil {
		slog.Error("failed to query conversations", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ProjectDetail{
		Project:       project,
		Tasks:         tasks,
		Conversations: conversations,
	})
}

// Delete handles DELETE /projects/{id}
// Removes the project and its tasks; linked conversations survive with
// their project link cleared.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	project, err := h.loadProject(user.ID, r.PathValue("id"))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		slog.Error("failed to query project", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE conversation SET project_id = NULL WHERE project_id = $1`, project.ID); err != nil {
		slog.Error("failed to unlink conversations", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	if _, err := tx.Exec(`DELETE FROM task WHERE project_id = $1`, project.ID); err != nil {
		slog.Error("failed to delete tasks", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	if _, err := tx.Exec(`DELETE FROM project WHERE id = $1`, project.ID); err != nil {
		slog.Error("failed to delete project", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}

	slog.Info("project deleted", "project_id", project.ID, "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// CreateTask handles POST /projects/{id}/tasks
func (h *ProjectHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	project, err := h.loadProject(user.ID, r.PathValue("id"))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		slog.Error("failed to query project", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var req models.CreateTaskRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	taskID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate task ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	now := time.Now()
	_, err = h.db.Exec(`
		INSERT INTO task (id, project_id, title, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, taskID, project.ID, req.Title, models.TaskOpen, now)
	if err != nil {
		slog.Error("failed to insert task", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	slog.Info("task created", "task_id", taskID, "project_id", project.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.Task{
		ID:        taskID,
		ProjectID: project.ID,
		Title:     req.Title,
		Status:    models.TaskOpen,
		CreatedAt: now,
	})
}

// CompleteTask handles POST /tasks/{id}/complete
func (h *ProjectHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.setTaskStatus(w, r, models.TaskDone)
}

// ReopenTask handles POST /tasks/{id}/reopen
func (h *ProjectHandler) ReopenTask(w http.ResponseWriter, r *http.Request) {
	h.setTaskStatus(w, r, models.TaskOpen)
}

// DeleteTask handles DELETE /tasks/{id}
func (h *ProjectHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	task, err := h.loadTask(user.ID, r.PathValue("id"))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		slog.Error("failed to query task", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if _, err := h.db.Exec(`DELETE FROM task WHERE id = $1`, task.ID); err != nil {
		slog.Error("failed to delete task", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *ProjectHandler) setTaskStatus(w http.ResponseWriter, r *http.Request, status string) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	task, err := h.loadTask(user.ID, r.PathValue("id"))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		slog.Error("failed to query task", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var completedAt sql.NullTime
	if status == models.TaskDone {
		completedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}

	_, err = h.db.Exec(`
		UPDATE task SET status = $1, completed_at = $2 WHERE id = $3
	`, status, completedAt, task.ID)
	if err != nil {
		slog.Error("failed to update task", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update task")
		return
	}

	task.Status = status
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	} else {
		task.CompletedAt = nil
	}

	middleware.JSONResponse(w, http.StatusOK, task)
}

// loadProject fetches a project scoped to its owner (404 semantics like
// loadConversation: someone else's ID reads as not found).
func (h *ProjectHandler) loadProject(userID, projectID string) (models.Project, error) {
	if projectID == "" {
		return models.Project{}, sql.ErrNoRows
	}

	var p models.Project
	var description sql.NullString
	err := h.db.QueryRow(`
		SELECT id, user_id, name, description, created_at
		FROM project
		WHERE id = $1 AND user_id = $2
	`, projectID, userID).Scan(&p.ID, &p.UserID, &p.Name, &description, &p.CreatedAt)
	if err != nil {
		return models.Project{}, err
	}
	p.Description = description.String
	return p, nil
}

// loadTask fetches a task through its project's owner.
func (h *ProjectHandler) loadTask(userID, taskID string) (models.Task, error) {
	if taskID == "" {
		return models.Task{}, sql.ErrNoRows
	}

	var t models.Task
	var completedAt sql.NullTime
	err := h.db.QueryRow(`
		SELECT t.id, t.project_id, t.title, t.status, t.created_at, t.completed_at
		FROM task t
		JOIN project p ON t.project_id = p.id
		WHERE t.id = $1 AND p.user_id = $2
	`, taskID, userID).Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.CreatedAt, &completedAt)
	if err != nil {
		return models.Task{}, err
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

func (h *ProjectHandler) projectTasks(projectID string) ([]models.Task, error) {
	rows, err := h.db.Query(`
		SELECT id, project_id, title, status, created_at, completed_at
		FROM task
		WHERE project_id = $1
		ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var completedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (h *ProjectHandler) projectConversations(projectID, userID string) ([]models.Conversation, error) {
	rows, err := h.db.Query(`
		SELECT id, user_id, title, kind, project_id, created_at, updated_at
		FROM conversation
		WHERE project_id = $1 AND user_id = $2
		ORDER BY updated_at DESC
	`, projectID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		var pid sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Kind, &pid, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if pid.Valid {
			c.ProjectID = &pid.String
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}
