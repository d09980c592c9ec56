package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/lookbusy1344/xenon-toolchain/vm"
)

// ErrSessionNotFound is returned when a session ID has no live session.
var ErrSessionNotFound = errors.New("session not found")

// Session is one incremental execution of a loaded program. It can be
// stepped one instruction at a time over the API, run to completion
// synchronously, or clocked in the background at a fixed tick.
type Session struct {
	ID        string
	Machine   *vm.VM
	Program   []string
	MaxSteps  int
	CreatedAt time.Time

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// SessionManager owns every live session, keyed by ID.
type SessionManager struct {
	sessions    map[string]*Session
	broadcaster *Broadcaster
	mu          sync.RWMutex
}

// NewSessionManager creates an empty session manager.
func NewSessionManager(broadcaster *Broadcaster) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		broadcaster: broadcaster,
	}
}

// CreateSession allocates a fresh VM under a new session ID.
func (sm *SessionManager) CreateSession(maxSteps int) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}
	if maxSteps <= 0 {
		maxSteps = 1_000_000
	}

	session := &Session{
		ID:        id,
		Machine:   vm.New(),
		MaxSteps:  maxSteps,
		CreatedAt: time.Now(),
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[id] = session
	return session, nil
}

// GetSession retrieves a session by ID.
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DestroySession removes a session.
func (sm *SessionManager) DestroySession(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(sm.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Load installs a padded program into the session and resets the VM.
func (s *Session) Load(words []string) error {
	prom, err := vm.PadProgram(words)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Machine.Reset()
	s.Program = prom
	return nil
}

// Step executes a single instruction and broadcasts the resulting state.
func (s *Session) Step(broadcaster *Broadcaster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked(broadcaster)
}

func (s *Session) stepLocked(broadcaster *Broadcaster) error {
	if s.Machine.Halted {
		return nil
	}
	err := s.Machine.Step(s.Program)
	if broadcaster != nil {
		ev := StepEvent{
			SessionID: s.ID,
			PC:        s.Machine.PC,
			A:         s.Machine.A,
			D:         s.Machine.D,
			Steps:     s.Machine.Steps,
			Halted:    s.Machine.Halted,
		}
		switch {
		case err != nil:
			ev.Event = "fault"
			ev.Detail = err.Error()
		case s.Machine.Halted:
			ev.Event = "halt"
		}
		broadcaster.Publish(ev)
	}
	return err
}

// RunInstant steps synchronously until halt, a fault, or the step bound.
func (s *Session) RunInstant(maxSteps int, broadcaster *Broadcaster) error {
	for {
		s.mu.Lock()
		if s.Machine.Halted || s.Machine.Steps >= maxSteps {
			s.mu.Unlock()
			return nil
		}
		if err := s.stepLocked(broadcaster); err != nil {
			s.mu.Unlock()
			return err
		}
		s.mu.Unlock()
	}
}

// StartClocked begins stepping the loaded program once per interval in a
// background goroutine until it halts, faults, exhausts the session's
// step budget, or StopClocked is called.
func (s *Session) StartClocked(interval time.Duration, broadcaster *Broadcaster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("session is already running")
	}
	if s.Program == nil {
		return errors.New("no program loaded")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	go s.clockLoop(interval, broadcaster, s.stopCh)
	return nil
}

func (s *Session) clockLoop(interval time.Duration, broadcaster *Broadcaster, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.Machine.Halted || s.Machine.Steps >= s.MaxSteps {
				s.running = false
				s.mu.Unlock()
				return
			}
			if err := s.stepLocked(broadcaster); err != nil || s.Machine.Halted {
				s.running = false
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
		}
	}
}

// StopClocked halts a clocked run between two steps; no instruction is
// ever left partially executed.
func (s *Session) StopClocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopCh)
		s.running = false
	}
}

// Running reports whether a clocked run is in progress.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a consistent snapshot of the session's machine state.
func (s *Session) Status() SessionStatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	screen := s.Machine.FB.Screen()
	points := make([]Point, len(screen))
	for i, p := range screen {
		points[i] = Point{X: p.X, Y: p.Y}
	}
	return SessionStatusResponse{
		ID:     s.ID,
		Halted: s.Machine.Halted,
		Steps:  s.Machine.Steps,
		PC:     s.Machine.PC,
		A:      s.Machine.A,
		D:      s.Machine.D,
		Screen: points,
	}
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
