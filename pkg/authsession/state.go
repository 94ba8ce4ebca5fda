package authsession

import "github.com/dmitrymomot/authgate/pkg/identity"

// Phase is the position of a manager in its lifecycle.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseBootstrapping
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session.
type State struct {
	User    *identity.Account
	Loading bool
	Phase   Phase
}

// Authenticated reports whether a user is present.
func (s State) Authenticated() bool {
	return s.User != nil
}

func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}
