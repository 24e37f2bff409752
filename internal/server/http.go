package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/taskboard/internal/coordinator"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/store"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *Server) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/session", s.handleSession)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/projects", s.handleListProjects)
	mux.HandleFunc("POST /v1/projects", s.handleSaveProject)
	mux.HandleFunc("GET /v1/tasks", s.handleListTasks)
	mux.HandleFunc("PUT /v1/tasks/{id}/status", s.handleSetTaskStatus)
	if s.toasts != nil {
		mux.Handle("GET /v1/toasts", s.toasts)
	}
	return RecoveryMiddleware(s.logger, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"sse_clients": s.hub.clientCount(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Session())
}

func (s *Server) handleListProjects(w http.ResponseWriter, _ *http.Request) {
	projects := s.app.Projects()
	if projects == nil {
		projects = []*model.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// saveProjectRequest is the JSON body of POST /v1/projects. An empty
// ProjectID creates a new project.
type saveProjectRequest struct {
	ProjectID       string   `json:"project_id,omitempty"`
	Name            string   `json:"name"`
	Color           string   `json:"color"`
	Members         []string `json:"members,omitempty"`
	OriginalMembers []string `json:"original_members,omitempty"`
}

type saveProjectResponse struct {
	Project  *model.Project `json:"project"`
	Created  bool           `json:"created"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	var body saveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := coordinator.ProjectSaveRequest{
		Name:            body.Name,
		Color:           body.Color,
		UpdatedMembers:  body.Members,
		OriginalMembers: body.OriginalMembers,
	}
	if body.ProjectID != "" {
		req.Target = s.findProject(body.ProjectID)
		if req.Target == nil {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
	}

	res, err := s.app.SaveProject(r.Context(), req)
	if err != nil {
		writeSaveError(w, err)
		return
	}

	out := saveProjectResponse{Project: res.Project, Created: res.Created}
	for _, warn := range res.Warnings {
		out.Warnings = append(out.Warnings, warn.Error())
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

func (s *Server) findProject(id string) *model.Project {
	for _, p := range s.app.Projects() {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID := q.Get("project")
	status := model.TaskStatus(q.Get("status"))
	if status != "" && !status.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	tasks := []*model.TaskDetail{}
	for _, t := range s.app.Tasks() {
		if projectID != "" && t.ProjectID != projectID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		tasks = append(tasks, t)
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleSetTaskStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status model.TaskStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !body.Status.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	detail, err := s.app.SetTaskStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		writeSaveError(w, err)
		return
	}
	if detail == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// writeSaveError maps coordinator errors to HTTP statuses.
func writeSaveError(w http.ResponseWriter, err error) {
	var (
		permErr  *coordinator.PermissionError
		validErr *model.ValidationError
	)
	switch {
	case errors.As(err, &permErr):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &validErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
