// Package server exposes the runtime over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/allocator"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/scheduler"
	"github.com/viant/ruleflow/service/spawner"
)

// Engine is the runtime surface served over HTTP.
type Engine interface {
	CreateProcess(ctx context.Context, request *spawner.Request) (*execution.Process, error)
	Dispatch(ctx context.Context, processID, trigger string) (*scheduler.Outcome, error)
	Enqueue(ctx context.Context, processID, trigger string, priority uint8) error
	Assign(ctx context.Context, processID, operatorID string) (*execution.Process, error)
	SetPriority(ctx context.Context, processID string, priority uint8) (*execution.Process, error)
	Process(ctx context.Context, id string) (*execution.Process, error)
	Processes(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error)
	Snapshots(ctx context.Context, processID string) ([]*model.Snapshot, error)
	Resource(ctx context.Context, resourceID string) (*model.Resource, error)
	Resources(ctx context.Context) ([]*model.Resource, error)
	Allocate(ctx context.Context, resourceID string, units int) error
	Release(ctx context.Context, resourceID string, units int) error
}

// Config for the HTTP API handler.
type Config struct {
	Engine   Engine
	Addr     string
	BasePath string
	Version  string
	Logger   hclog.Logger
}

// Server serves the HTTP API.
type Server struct {
	addr    string
	handler http.Handler
	server  *http.Server
	logger  hclog.Logger
}

// New builds the router and registers every operation.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Origin"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         int((12 * time.Hour).Seconds()),
	}))
	router.Get("/metrics", promhttp.Handler().ServeHTTP)

	hcfg := huma.DefaultConfig("Ruleflow API", cfg.Version)
	var api huma.API = humachi.New(router, hcfg)
	if base := strings.TrimSuffix(cfg.BasePath, "/"); base != "" {
		if !strings.HasPrefix(base, "/") {
			base = "/" + base
		}
		api = huma.NewGroup(api, base)
	}
	registerHealth(api)
	registerProcesses(api, cfg.Engine)
	registerResources(api, cfg.Engine)

	ret := &Server{addr: cfg.Addr, handler: router, logger: cfg.Logger.Named("server")}
	ret.server = &http.Server{
		ReadHeaderTimeout: 3 * time.Second,
		Handler:           router,
		Addr:              cfg.Addr,
	}
	return ret, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() (net.Listener, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, err
	}
	s.logger.Info("listening", "addr", listener.Addr().String())
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", "error", err)
		}
	}()
	return listener, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func handleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dao.ErrNotFound), errors.Is(err, scheduler.ErrProcessNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, allocator.ErrResourceExhausted), errors.Is(err, execution.ErrTerminated):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, allocator.ErrInvalidUnits):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type processPath struct {
	ID string `path:"id"`
}

type processBody struct {
	Body *execution.Process `json:"body"`
}

func registerProcesses(api huma.API, e Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-processes",
		Method:      http.MethodGet,
		Path:        "/processes",
		Summary:     "List processes",
	}, func(ctx context.Context, input *struct {
		State     string `query:"state"`
		ServiceID string `query:"service"`
		ParentID  string `query:"parent"`
	}) (*struct {
		Body []*execution.Process `json:"body"`
	}, error) {
		var parameters []*dao.Parameter
		if input.State != "" {
			state, ok := execution.ParseState(input.State)
			if !ok {
				return nil, huma.Error400BadRequest("invalid state: " + input.State)
			}
			parameters = append(parameters, dao.NewParameter(dao.ParamState, string(state)))
		}
		if input.ServiceID != "" {
			parameters = append(parameters, dao.NewParameter(dao.ParamServiceID, input.ServiceID))
		}
		if input.ParentID != "" {
			parameters = append(parameters, dao.NewParameter(dao.ParamParentID, input.ParentID))
		}
		list, err := e.Processes(ctx, parameters...)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []*execution.Process `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-process",
		Method:      http.MethodGet,
		Path:        "/processes/{id}",
		Summary:     "Get process",
	}, func(ctx context.Context, input *processPath) (*processBody, error) {
		p, err := e.Process(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &processBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-process",
		Method:        http.MethodPost,
		Path:          "/processes",
		Summary:       "Create process",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateProcessRequest `json:"body"`
	}) (*processBody, error) {
		req := input.Body
		p, err := e.CreateProcess(ctx, &spawner.Request{
			ServiceID:      req.ServiceID,
			OperatorID:     req.OperatorID,
			EntityID:       req.EntityID,
			ContractID:     req.ContractID,
			Priority:       req.Priority,
			Business:       req.Business,
			Schedule:       req.Schedule,
			Fields:         req.Fields,
			Record:         req.Record,
			ScheduledTime:  req.ScheduledTime,
			TimeoutSeconds: req.TimeoutSeconds,
			MaxRetries:     req.MaxRetries,
		})
		if err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				return nil, huma.Error404NotFound(err.Error())
			}
			return nil, huma.Error400BadRequest(err.Error())
		}
		if req.Dispatch {
			if _, err = e.Dispatch(ctx, p.ID, scheduler.TriggerCreated); err != nil {
				return nil, handleError(err)
			}
			if p, err = e.Process(ctx, p.ID); err != nil {
				return nil, handleError(err)
			}
		}
		return &processBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dispatch-process",
		Method:      http.MethodPost,
		Path:        "/processes/{id}/dispatch",
		Summary:     "Dispatch process",
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body DispatchRequest `json:"body"`
	}) (*struct {
		Body *scheduler.Outcome `json:"body"`
	}, error) {
		trigger := input.Body.Trigger
		if trigger == "" {
			trigger = scheduler.TriggerUpdated
		}
		if input.Body.Async {
			p, err := e.Process(ctx, input.ID)
			if err != nil {
				return nil, handleError(err)
			}
			if err = e.Enqueue(ctx, p.ID, trigger, p.Priority); err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body *scheduler.Outcome `json:"body"`
			}{Body: &scheduler.Outcome{ProcessID: p.ID, Trigger: trigger, From: p.State, State: p.State, Version: p.Version}}, nil
		}
		outcome, err := e.Dispatch(ctx, input.ID, trigger)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body *scheduler.Outcome `json:"body"`
		}{Body: outcome}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-process",
		Method:      http.MethodPost,
		Path:        "/processes/{id}/assign",
		Summary:     "Assign operator",
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body AssignRequest `json:"body"`
	}) (*processBody, error) {
		p, err := e.Assign(ctx, input.ID, input.Body.OperatorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &processBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-process-priority",
		Method:      http.MethodPost,
		Path:        "/processes/{id}/priority",
		Summary:     "Set priority",
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body PriorityRequest `json:"body"`
	}) (*processBody, error) {
		p, err := e.SetPriority(ctx, input.ID, input.Body.Priority)
		if err != nil {
			return nil, handleError(err)
		}
		return &processBody{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-snapshots",
		Method:      http.MethodGet,
		Path:        "/processes/{id}/snapshots",
		Summary:     "List context snapshots",
	}, func(ctx context.Context, input *processPath) (*struct {
		Body []*model.Snapshot `json:"body"`
	}, error) {
		if _, err := e.Process(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		list, err := e.Snapshots(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []*model.Snapshot `json:"body"`
		}{Body: list}, nil
	})
}

type resourceBody struct {
	Body *model.Resource `json:"body"`
}

func registerResources(api huma.API, e Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-resources",
		Method:      http.MethodGet,
		Path:        "/resources",
		Summary:     "List resources",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []*model.Resource `json:"body"`
	}, error) {
		list, err := e.Resources(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []*model.Resource `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-resource",
		Method:      http.MethodGet,
		Path:        "/resources/{id}",
		Summary:     "Get resource",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*resourceBody, error) {
		r, err := e.Resource(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &resourceBody{Body: r}, nil
	})

	for _, op := range []struct {
		id, path, summary string
		fn                func(ctx context.Context, resourceID string, units int) error
	}{
		{id: "allocate-resource", path: "/resources/{id}/allocate", summary: "Allocate units", fn: e.Allocate},
		{id: "release-resource", path: "/resources/{id}/release", summary: "Release units", fn: e.Release},
	} {
		fn := op.fn
		huma.Register(api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodPost,
			Path:        op.path,
			Summary:     op.summary,
		}, func(ctx context.Context, input *struct {
			ID   string       `path:"id"`
			Body UnitsRequest `json:"body"`
		}) (*resourceBody, error) {
			if err := fn(ctx, input.ID, input.Body.Units); err != nil {
				return nil, handleError(err)
			}
			r, err := e.Resource(ctx, input.ID)
			if err != nil {
				return nil, handleError(err)
			}
			return &resourceBody{Body: r}, nil
		})
	}
}
