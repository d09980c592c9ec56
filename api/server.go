// Package api exposes the compile/assemble/run pipeline and a clocked,
// steppable session over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lookbusy1344/xenon-toolchain/config"
)

// Server is the xenon-toolchain HTTP/WebSocket API.
type Server struct {
	sessions    *SessionManager
	broadcaster *Broadcaster
	mux         *http.ServeMux
	server      *http.Server

	port          int
	allowedOrigin string
	stepInterval  time.Duration
}

// NewServer builds a Server from the toolchain configuration: the API
// port, the allowed browser origin, and the default clocked-run step
// interval all come from cfg.API.
func NewServer(cfg *config.Config) *Server {
	broadcaster := NewBroadcaster()
	s := &Server{
		sessions:      NewSessionManager(broadcaster),
		broadcaster:   broadcaster,
		mux:           http.NewServeMux(),
		port:          cfg.API.Port,
		allowedOrigin: cfg.API.AllowedOrigin,
		stepInterval:  time.Duration(cfg.API.StepIntervalMS) * time.Millisecond,
	}
	s.registerRoutes()
	return s
}

// Handler returns the CORS-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/ws", s.handleWebSocket)

	s.mux.HandleFunc("/api/v1/compile", s.handleCompile)
	s.mux.HandleFunc("/api/v1/assemble", s.handleAssemble)
	s.mux.HandleFunc("/api/v1/run", s.handleRunOnce)

	s.mux.HandleFunc("/api/v1/session", s.handleSession)
	s.mux.HandleFunc("/api/v1/session/", s.handleSessionRoute)
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Printf("xenon API server starting on http://127.0.0.1:%d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and disconnects every client.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.broadcaster != nil {
		s.broadcaster.Close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin accepts requests with no Origin header, file:// pages,
// and http(s) pages served from the configured origin host. When that
// host is "localhost", 127.0.0.1 is accepted as an alias.
func (s *Server) isAllowedOrigin(origin string) bool {
	if origin == "" || strings.HasPrefix(origin, "file://") {
		return true
	}
	hosts := []string{s.allowedOrigin}
	if s.allowedOrigin == "localhost" {
		hosts = append(hosts, "127.0.0.1")
	}
	for _, host := range hosts {
		if strings.HasPrefix(origin, "http://"+host) || strings.HasPrefix(origin, "https://"+host) {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Count(),
		"time":     time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("error encoding JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: http.StatusText(status), Message: message, Code: status})
}

func readJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1024*1024))
	return decoder.Decode(v)
}
