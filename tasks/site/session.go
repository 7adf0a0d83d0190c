package site

import (
	"sync"

	"github.com/fredrikaverpil/sitebuild/pk"
)

// State is a phase of a development session.
type State int

const (
	Idle State = iota
	Cleaning
	Building
	// Watching means the watchers and the server are both running.
	Watching
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Cleaning:
		return "cleaning"
	case Building:
		return "building"
	case Watching:
		return "watching+serving"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Session follows one invocation of a root task through
// idle → cleaning → building → watching+serving → terminated, driven by the
// task events it observes. Once watching, a task re-run by a watch binding
// re-enters building until it finishes; the server keeps running meanwhile.
// No other transition goes backwards.
type Session struct {
	root string

	mu         sync.Mutex
	state      State
	history    []State
	err        error
	rebuilding int
}

// NewSession creates a session for the task named root.
func NewSession(root string) *Session {
	return &Session{root: root, history: []State{Idle}}
}

// Observe is a pk.Observer that advances the session.
func (s *Session) Observe(e pk.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Terminated {
		return
	}
	switch {
	case e.Task == s.root:
		if e.Done {
			s.err = e.Err
			s.set(Terminated)
		}
	case e.Task == TaskWatch || e.Task == TaskServer:
		if !e.Done {
			s.advance(Watching)
		}
	case s.state == Watching || s.rebuilding > 0:
		s.rerun(e)
	case e.Task == TaskClean:
		if !e.Done {
			s.advance(Cleaning)
		} else if e.Err == nil {
			s.advance(Building)
		}
	}
}

// rerun tracks tasks started by watch bindings. Bindings fire
// independently, so reruns may overlap.
func (s *Session) rerun(e pk.Event) {
	if !e.Done {
		s.rebuilding++
		if s.rebuilding == 1 {
			s.set(Building)
		}
		return
	}
	if s.rebuilding == 0 {
		return
	}
	s.rebuilding--
	if s.rebuilding == 0 {
		s.set(Watching)
	}
}

func (s *Session) advance(to State) {
	if to <= s.state {
		return
	}
	s.set(to)
}

func (s *Session) set(to State) {
	if to == s.state {
		return
	}
	s.state = to
	s.history = append(s.history, to)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns every state the session has been in, in order.
func (s *Session) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.history...)
}

// Err returns the root task's error once the session has terminated.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
