// Package mockserver is an in-memory implementation of the scenario backend.
// It serves the same REST surface the console talks to and runs executions
// with the runner package.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/runner"
)

// Config controls a Server. The zero value serves an empty store.
type Config struct {
	Store  *Store
	Logger *slog.Logger
	// Runner options for executions. Options.Observer is left to the caller.
	Runner runner.Options
	// ExecutionTimeout bounds one run. Zero means no limit.
	ExecutionTimeout time.Duration
}

// Server serves the backend REST API.
type Server struct {
	router  chi.Router
	store   *Store
	logger  *slog.Logger
	runner  *runner.Runner
	timeout time.Duration
	metrics *metrics
	running sync.WaitGroup
}

// NewServer builds a Server with its routes.
func NewServer(cfg Config) *Server {
	if cfg.Store == nil {
		cfg.Store = NewStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Runner.Logger == nil {
		cfg.Runner.Logger = cfg.Logger
	}
	srv := &Server{
		router:  chi.NewRouter(),
		store:   cfg.Store,
		logger:  cfg.Logger,
		runner:  runner.New(cfg.Runner),
		timeout: cfg.ExecutionTimeout,
		metrics: newMetrics(),
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Wait blocks until every started execution has finished.
func (s *Server) Wait() {
	s.running.Wait()
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.instrument)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	s.router.Route("/structures", func(r chi.Router) {
		r.Get("/", s.handleListStructures)
		r.Post("/", s.handleCreateStructure)
		r.Get("/{id}", s.handleGetStructure)
		r.Patch("/{id}", s.handleUpdateStructure)
		r.Delete("/{id}", s.handleDeleteStructure)
		r.Post("/{id}/fields", s.handleCreateStructureField)
	})
	s.router.Patch("/structureFields/{id}", s.handleUpdateStructureField)
	s.router.Delete("/structureFields/{id}", s.handleDeleteStructureField)

	s.router.Route("/scenarios", func(r chi.Router) {
		r.Get("/", s.handleListScenarios)
		r.Post("/", s.handleCreateScenario)
		r.Get("/{id}", s.handleGetScenario)
		r.Patch("/{id}", s.handleUpdateScenario)
		r.Delete("/{id}", s.handleDeleteScenario)
		r.Get("/{id}/steps", s.handleListSteps)
		r.Post("/{id}/steps", s.handleCreateStep)
		r.Get("/{id}/parameters", s.handleListParameters)
		r.Post("/{id}/parameters", s.handleCreateParameter)
		r.Post("/{id}/execute", s.handleExecute)
	})
	s.router.Route("/parameters/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetParameter)
		r.Patch("/", s.handleUpdateParameter)
		r.Delete("/", s.handleDeleteParameter)
	})
	s.router.Route("/steps/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetStep)
		r.Patch("/", s.handleUpdateStep)
		r.Delete("/", s.handleDeleteStep)
		r.Patch("/request", s.handleUpdateStepRequest)
		r.Patch("/response", s.handleUpdateStepResponse)
	})
	s.router.Patch("/requestFields/{id}", s.handleUpdateRequestField)
	s.router.Patch("/responseFields/{id}", s.handleUpdateResponseField)

	s.router.Get("/executions", s.handleListExecutions)
	s.router.Get("/executions/{id}", s.handleGetExecution)
	s.router.Get("/executionSteps/{id}", s.handleGetExecutionStep)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.metrics.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status, "dur", time.Since(start), "remote", r.RemoteAddr)
	})
}

// --- structures ---

func (s *Server) handleListStructures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListStructures(pageRequest(r)))
}

func (s *Server) handleGetStructure(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetStructure(chi.URLParam(r, "id"))
	s.reply(w, http.StatusOK, st, err)
}

func (s *Server) handleCreateStructure(w http.ResponseWriter, r *http.Request) {
	var body model.StructureWrite
	if !s.decode(w, r, &body) {
		return
	}
	st, err := s.store.CreateStructure(body)
	s.reply(w, http.StatusCreated, st, err)
}

func (s *Server) handleUpdateStructure(w http.ResponseWriter, r *http.Request) {
	var body model.StructureWrite
	if !s.decode(w, r, &body) {
		return
	}
	st, err := s.store.UpdateStructure(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusOK, st, err)
}

func (s *Server) handleDeleteStructure(w http.ResponseWriter, r *http.Request) {
	s.replyEmpty(w, s.store.DeleteStructure(chi.URLParam(r, "id")))
}

func (s *Server) handleCreateStructureField(w http.ResponseWriter, r *http.Request) {
	var body model.StructureFieldWrite
	if !s.decode(w, r, &body) {
		return
	}
	f, err := s.store.CreateStructureField(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusCreated, f, err)
}

func (s *Server) handleUpdateStructureField(w http.ResponseWriter, r *http.Request) {
	var body model.StructureFieldWrite
	if !s.decode(w, r, &body) {
		return
	}
	f, err := s.store.UpdateStructureField(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusOK, f, err)
}

func (s *Server) handleDeleteStructureField(w http.ResponseWriter, r *http.Request) {
	s.replyEmpty(w, s.store.DeleteStructureField(chi.URLParam(r, "id")))
}

// --- scenarios and parameters ---

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListScenarios(pageRequest(r)))
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.GetScenario(chi.URLParam(r, "id"))
	s.reply(w, http.StatusOK, sc, err)
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var body model.ScenarioWrite
	if !s.decode(w, r, &body) {
		return
	}
	sc, err := s.store.CreateScenario(body)
	s.reply(w, http.StatusCreated, sc, err)
}

func (s *Server) handleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	var body model.ScenarioWrite
	if !s.decode(w, r, &body) {
		return
	}
	sc, err := s.store.UpdateScenario(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusOK, sc, err)
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	s.replyEmpty(w, s.store.DeleteScenario(chi.URLParam(r, "id")))
}

func (s *Server) handleListParameters(w http.ResponseWriter, r *http.Request) {
	params, err := s.store.ListParameters(chi.URLParam(r, "id"))
	s.reply(w, http.StatusOK, params, err)
}

func (s *Server) handleGetParameter(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetParameter(chi.URLParam(r, "id"))
	s.reply(w, http.StatusOK, p, err)
}

func (s *Server) handleCreateParameter(w http.ResponseWriter, r *http.Request) {
	var body model.ParameterWrite
	if !s.decode(w, r, &body) {
		return
	}
	p, err := s.store.CreateParameter(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusCreated, p, err)
}

func (s *Server) handleUpdateParameter(w http.ResponseWriter, r *http.Request) {
	var body model.ParameterWrite
	if !s.decode(w, r, &body) {
		return
	}
	p, err := s.store.UpdateParameter(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusOK, p, err)
}

func (s *Server) handleDeleteParameter(w http.ResponseWriter, r *http.Request) {
	s.replyEmpty(w, s.store.DeleteParameter(chi.URLParam(r, "id")))
}

// --- steps ---

func (s *Server) handleListSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := s.store.ListSteps(chi.URLParam(r, "id"))
	s.reply(w, http.StatusOK, steps, err)
}

func (s *Server) handleGetStep(w http.ResponseWriter, r *http.Request) {
	step, err := s.store.GetStep(chi.URLParam(r, "id"))
	s.reply(w, http.StatusOK, step, err)
}

func (s *Server) handleCreateStep(w http.ResponseWriter, r *http.Request) {
	var body model.StepWrite
	if !s.decode(w, r, &body) {
		return
	}
	step, err := s.store.CreateStep(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusCreated, step, err)
}

func (s *Server) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	var body model.StepWrite
	if !s.decode(w, r, &body) {
		return
	}
	step, err := s.store.UpdateStep(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusOK, step, err)
}

func (s *Server) handleDeleteStep(w http.ResponseWriter, r *http.Request) {
	s.replyEmpty(w, s.store.DeleteStep(chi.URLParam(r, "id")))
}

func (s *Server) handleUpdateStepRequest(w http.ResponseWriter, r *http.Request) {
	var body model.RequestWrite
	if !s.decode(w, r, &body) {
		return
	}
	req, err := s.store.UpdateStepRequest(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusOK, req, err)
}

func (s *Server) handleUpdateStepResponse(w http.ResponseWriter, r *http.Request) {
	var body model.ResponseWrite
	if !s.decode(w, r, &body) {
		return
	}
	resp, err := s.store.UpdateStepResponse(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusOK, resp, err)
}

func (s *Server) handleUpdateRequestField(w http.ResponseWriter, r *http.Request) {
	var body model.RequestFieldUpdate
	if !s.decode(w, r, &body) {
		return
	}
	f, err := s.store.UpdateRequestField(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusOK, f, err)
}

func (s *Server) handleUpdateResponseField(w http.ResponseWriter, r *http.Request) {
	var body model.ResponseFieldUpdate
	if !s.decode(w, r, &body) {
		return
	}
	f, err := s.store.UpdateResponseField(chi.URLParam(r, "id"), body)
	s.reply(w, http.StatusOK, f, err)
}

// --- executions ---

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var body model.StartExecution
	if !s.decode(w, r, &body) {
		return
	}
	id, plan, err := s.store.StartExecution(chi.URLParam(r, "id"), body.BaseURL)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.running.Add(1)
	s.metrics.inflight.Inc()
	go s.execute(id, plan, body.BaseURL)
	writeJSON(w, http.StatusAccepted, model.StartedExecution{ID: id})
}

func (s *Server) execute(id string, plan runner.Plan, baseURL string) {
	defer s.running.Done()
	defer s.metrics.inflight.Dec()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("execution panicked", "execution", id, "panic", p)
			s.store.FailExecution(id)
			s.metrics.executions.WithLabelValues(string(model.ExecutionFailed)).Inc()
		}
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.runner.Run(ctx, plan, baseURL)
	if err != nil {
		s.logger.Error("execution failed to start", "execution", id, "error", err)
		s.store.FailExecution(id)
		s.metrics.executions.WithLabelValues(string(model.ExecutionFailed)).Inc()
		return
	}
	if err := s.store.FinishExecution(id, res); err != nil {
		s.logger.Warn("execution finished after removal", "execution", id, "error", err)
		return
	}
	s.metrics.executions.WithLabelValues(string(res.Execution.Status)).Inc()
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListExecutions(pageRequest(r)))
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.GetExecution(chi.URLParam(r, "id"))
	s.reply(w, http.StatusOK, e, err)
}

func (s *Server) handleGetExecutionStep(w http.ResponseWriter, r *http.Request) {
	step, err := s.store.GetExecutionStep(chi.URLParam(r, "id"))
	s.reply(w, http.StatusOK, step, err)
}

// --- helpers ---

func pageRequest(r *http.Request) model.PageRequest {
	var p model.PageRequest
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		p.Size = v
	}
	return p
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.logger.Warn("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Status: model.StatusMalformedBody})
		return false
	}
	return true
}

func (s *Server) reply(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, status, payload)
}

func (s *Server) replyEmpty(w http.ResponseWriter, err error) {
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	var se *StatusError
	if !errors.As(err, &se) {
		se = &StatusError{Code: http.StatusInternalServerError, Status: model.StatusInternalServerError}
	}
	if se.Code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", se.Code, "error", err)
	} else {
		s.logger.Warn("request failed", "status", se.Code, "error", err)
	}
	writeJSON(w, se.Code, model.ErrorResponse{Status: se.Status})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
