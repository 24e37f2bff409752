// Package server exposes a running taskboard session over HTTP and gRPC:
// the change bus as a server-sent event stream, toasts over a websocket,
// the current projections as JSON, and the save operations as POST/PUT
// endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/coordinator"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// App is the session the server fronts.
type App interface {
	Session() model.Session
	Projects() []*model.Project
	Tasks() []*model.TaskDetail
	SaveProject(ctx context.Context, req coordinator.ProjectSaveRequest) (*coordinator.SaveResult, error)
	SetTaskStatus(ctx context.Context, id string, status model.TaskStatus) (*model.TaskDetail, error)
}

// Server serves one App.
type Server struct {
	app    App
	hub    *sseHub
	toasts http.Handler
	health *health.Server
	logger *slog.Logger

	sub       *changebus.Handle
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Server that streams every event published on bus.
// toasts, if non-nil, is mounted at /v1/toasts.
func New(app App, bus *changebus.Bus, toasts http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		app:    app,
		hub:    newSSEHub(),
		toasts: toasts,
		health: health.NewServer(),
		logger: logger,
		done:   make(chan struct{}),
	}
	s.sub = bus.Subscribe(s.publishChange)
	s.SetServing(false)
	return s
}

// SetServing flips the gRPC health status reported for the whole server.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Close detaches from the bus and ends open event streams.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.sub.Close()
		s.health.Shutdown()
		close(s.done)
	})
}
