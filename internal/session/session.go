package session

import (
	"solis/internal/auth"
	"solis/internal/model"
)

type State string

const (
	Unresolved    State = "unresolved"
	Authenticated State = "authenticated"
	Anonymous     State = "anonymous"
)

// Views the redirect rules refer to.
const (
	EntryView   = "/login"
	ConsoleView = "/dashboard"
)

type EventKind string

const (
	Loaded         EventKind = "loaded"
	SignedIn       EventKind = "signed_in"
	SignedOut      EventKind = "signed_out"
	TokenRefreshed EventKind = "token_refreshed"
)

// Event is one session-change notification from the identity backend.
// Identity is nil when there is no signed-in holder.
type Event struct {
	Kind     EventKind
	Identity *auth.Identity
	View     string
}

// Snapshot is what the rest of the console reads.
type Snapshot struct {
	State   State       `json:"state"`
	User    *model.User `json:"user"`
	Loading bool        `json:"loading"`
}

// Result pairs the new snapshot with the view to navigate to. Redirect is
// empty unless the event caused a state transition that requires one.
type Result struct {
	Snapshot
	Redirect string `json:"redirect,omitempty"`
}

// Session is the per-session state machine.
type Session struct {
	id       string
	snapshot Snapshot
}

func newSession(id string) *Session {
	return &Session{id: id, snapshot: Snapshot{State: Unresolved, Loading: true}}
}

// apply moves the session to next and computes the redirect for view.
func (s *Session) apply(next Snapshot, view string) string {
	prev := s.snapshot.State
	s.snapshot = next
	if prev == next.State {
		return ""
	}
	switch {
	case next.State == Anonymous && view != EntryView:
		return EntryView
	case next.State == Authenticated && view == EntryView:
		return ConsoleView
	}
	return ""
}
