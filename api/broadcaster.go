package api

import "sync"

// StepEvent is one message pushed to live watchers: the machine state
// after a single executed instruction, plus an execution marker when
// that instruction halted or faulted the VM. Xenon has no other event
// kinds, so the whole stream fits one flat shape.
type StepEvent struct {
	SessionID string `json:"sessionId"`
	PC        int    `json:"pc"`
	A         int    `json:"a"`
	D         int    `json:"d"`
	Steps     int    `json:"steps"`
	Halted    bool   `json:"halted"`
	Event     string `json:"event,omitempty"`  // "halt" or "fault"
	Detail    string `json:"detail,omitempty"` // fault message
}

// Watcher receives one session's step events (or every session's, for
// the empty ID). A watcher that cannot keep up has events dropped
// rather than stalling the VM between steps.
type Watcher struct {
	sessionID string
	ch        chan StepEvent
}

// Events returns the watcher's stream. The channel is closed by Unwatch
// and by Broadcaster.Close.
func (w *Watcher) Events() <-chan StepEvent { return w.ch }

// Broadcaster fans step events from running sessions out to websocket
// watchers.
type Broadcaster struct {
	mu       sync.Mutex
	watchers map[*Watcher]struct{}
	closed   bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{watchers: make(map[*Watcher]struct{})}
}

// Watch registers a watcher for the given session ID; "" matches every
// session. After Close, the returned watcher's stream is already closed.
func (b *Broadcaster) Watch(sessionID string) *Watcher {
	w := &Watcher{sessionID: sessionID, ch: make(chan StepEvent, 64)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(w.ch)
		return w
	}
	b.watchers[w] = struct{}{}
	return w
}

// Unwatch removes a watcher and closes its stream. Calling it again for
// the same watcher is a no-op.
func (b *Broadcaster) Unwatch(w *Watcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[w]; ok {
		delete(b.watchers, w)
		close(w.ch)
	}
}

// Publish delivers ev to every watcher of its session, dropping it for
// watchers whose buffers are full.
func (b *Broadcaster) Publish(ev StepEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for w := range b.watchers {
		if w.sessionID != "" && w.sessionID != ev.SessionID {
			continue
		}
		select {
		case w.ch <- ev:
		default:
		}
	}
}

// Close closes every watcher's stream and marks the broadcaster done.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for w := range b.watchers {
		close(w.ch)
	}
	b.watchers = make(map[*Watcher]struct{})
}

// WatcherCount returns the number of registered watchers.
func (b *Broadcaster) WatcherCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}
