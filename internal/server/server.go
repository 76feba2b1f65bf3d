// Package server provides the HTTP handlers and routing for the MCP server.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"termux-mcp/internal/config"
	"termux-mcp/internal/dispatch"
	"termux-mcp/internal/metrics"
)

const (
	serverName        = "Termux MCP Server"
	serverDescription = "MCP (Model Context Protocol) server running on Termux Android environment"
)

// Server contains the configured router, dispatcher and config for the MCP server.
type Server struct {
	cfg        config.Config
	router     *chi.Mux
	dispatcher *dispatch.Dispatcher
	log        logrus.FieldLogger
	started    time.Time
	static     http.Handler
}

// New constructs a Server with middleware and routes configured.
func New(cfg config.Config, d *dispatch.Dispatcher, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		dispatcher: d,
		log:        log,
		started:    time.Now(),
	}
	if cfg.PublicDir != "" {
		if info, err := os.Stat(cfg.PublicDir); err == nil && info.IsDir() {
			s.static = http.FileServer(http.Dir(cfg.PublicDir))
		}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(s.recoverer)
	s.router.Use(securityHeaders)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(middleware.Compress(5))
	if cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(cfg.RequestTimeout.Std()))
	}
	s.router.Use(s.limitBody)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Route("/mcp", func(r chi.Router) {
			r.Use(s.auth)
			r.Get("/tools", s.handleListTools)
			r.Get("/tools/{name}", s.handleGetTool)
			r.Post("/call", s.handleCall)
		})
	})

	s.router.NotFound(s.handleNotFound)
	s.router.MethodNotAllowed(s.handleNotFound)

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logrus.Fields{
			"addr":  srv.Addr,
			"tls":   s.cfg.TLS(),
			"tools": len(s.dispatcher.ListOperations()),
		}).Info("MCP server listening")
		var err error
		if s.cfg.TLS() {
			err = srv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func timestamp() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (s *Server) uptime() float64 { return time.Since(s.started).Seconds() }

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        serverName,
		"version":     config.Version,
		"description": serverDescription,
		"endpoints": map[string]string{
			"health":  "/health",
			"tools":   "/api/mcp/tools",
			"call":    "/api/mcp/call",
			"status":  "/api/status",
			"metrics": "/metrics",
		},
		"tools":     len(s.dispatcher.ListOperations()),
		"timestamp": timestamp(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": timestamp(),
		"uptime":    s.uptime(),
		"version":   config.Version,
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	ops := s.dispatcher.ListOperations()
	writeJSON(w, http.StatusOK, map[string]any{"tools": ops, "count": len(ops)})
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, ok := s.dispatcher.DescribeOperation(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Tool not found: " + name})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}

	name, _ := req.Tool.(string)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Tool name is required"})
		return
	}
	raw := bytes.TrimSpace(req.Arguments)
	if len(raw) == 0 || raw[0] != '{' {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Arguments object is required"})
		return
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}

	res := s.dispatcher.HandleCall(r.Context(), name, args)
	status := http.StatusOK
	if res.Kind == dispatch.KindOperationNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, res)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	ops := s.dispatcher.ListOperations()
	names := make([]string, 0, len(ops))
	for _, d := range ops {
		names = append(names, d.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"server": map[string]any{
			"status": "running",
			"uptime": s.uptime(),
			"pid":    os.Getpid(),
			"port":   s.cfg.Port,
		},
		"tools": map[string]any{
			"count":     len(ops),
			"available": names,
		},
		"system": map[string]any{
			"platform":   runtime.GOOS,
			"arch":       runtime.GOARCH,
			"goVersion":  runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	})
}

// handleNotFound serves a file from the public directory when one matches,
// otherwise the JSON 404.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if s.static != nil && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		name := filepath.Join(s.cfg.PublicDir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			s.static.ServeHTTP(w, r)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Endpoint not found", Path: r.URL.RequestURI()})
}
