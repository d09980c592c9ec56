package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lookbusy1344/xenon-toolchain/driver"
)

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req CompileRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines, cerr := driver.Compile(req.Filename, req.Source, nil, req.AllowFileInclude, req.RemoveTrailing)
	if cerr != nil {
		writeError(w, http.StatusUnprocessableEntity, cerr.Error())
		return
	}
	writeJSON(w, http.StatusOK, CompileResponse{Assembly: lines})
}

func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req AssembleRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	words, aerr := driver.Assemble(req.Filename, req.Lines)
	if aerr != nil {
		writeError(w, http.StatusUnprocessableEntity, aerr.Error())
		return
	}
	writeJSON(w, http.StatusOK, AssembleResponse{Words: words})
}

func (s *Server) handleRunOnce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req RunRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 1_000_000
	}

	result, err := driver.Run(req.Words, maxSteps)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(result))
}

func toRunResponse(result *driver.RunResult) RunResponse {
	screen := make([]Point, len(result.Screen))
	for i, p := range result.Screen {
		screen[i] = Point{X: p.X, Y: p.Y}
	}
	return RunResponse{
		TimedOut: result.TimedOut,
		Halted:   result.Halted,
		Steps:    result.Steps,
		A:        result.A,
		D:        result.D,
		Screen:   screen,
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{"count": s.sessions.Count()})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	_ = readJSON(r, &req) // empty body is fine; defaults apply

	session, err := s.sessions.CreateSession(req.MaxSteps)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, session.Status())
}

func (s *Server) handleSessionRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/session/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "session ID required")
		return
	}
	sessionID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSessionStatus(w, r, sessionID)
		case http.MethodDelete:
			s.handleDestroySession(w, r, sessionID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "load":
		s.handleLoadProgram(w, r, sessionID)
	case "step":
		s.handleStep(w, r, sessionID)
	case "run":
		s.handleRunSession(w, r, sessionID)
	case "start":
		s.handleStartClocked(w, r, sessionID)
	case "stop":
		s.handleStopClocked(w, r, sessionID)
	default:
		writeError(w, http.StatusNotFound, "unknown action: "+parts[1])
	}
}

func (s *Server) handleGetSessionStatus(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session.Status())
}

func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.sessions.DestroySession(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadProgram(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var req LoadProgramRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := session.Load(req.Words); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session.Status())
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := session.Step(s.broadcaster); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session.Status())
}

func (s *Server) handleRunSession(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	steps := session.MaxSteps
	if n := r.URL.Query().Get("maxSteps"); n != "" {
		if parsed, perr := strconv.Atoi(n); perr == nil && parsed > 0 {
			steps = parsed
		}
	}

	if err := session.RunInstant(steps, s.broadcaster); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session.Status())
}

func (s *Server) handleStartClocked(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	interval := s.stepInterval
	if n := r.URL.Query().Get("intervalMs"); n != "" {
		if parsed, perr := strconv.Atoi(n); perr == nil && parsed > 0 {
			interval = time.Duration(parsed) * time.Millisecond
		}
	}

	if err := session.StartClocked(interval, s.broadcaster); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session.Status())
}

func (s *Server) handleStopClocked(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	session.StopClocked()
	writeJSON(w, http.StatusOK, session.Status())
}
