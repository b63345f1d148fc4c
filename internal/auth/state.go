package auth

import "cafe_client/internal/shared"

// StateKind names the four authentication states.
type StateKind int

const (
	StateLoading StateKind = iota
	StateUnauthenticated
	StateAuthenticated
	StateNeedsEmailVerification
)

func (k StateKind) String() string {
	switch k {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateNeedsEmailVerification:
		return "needs_email_verification"
	default:
		return "unknown"
	}
}

// State is a snapshot of the orchestrator. Session is set only when
// Authenticated and Pending only when NeedsEmailVerification.
type State struct {
	Kind    StateKind
	Session *shared.Session
	Pending *shared.PendingRegistration
}

// User returns the signed-in user, or nil.
func (s State) User() *shared.User {
	if s.Session == nil {
		return nil
	}
	return &s.Session.User
}

// IsAuthenticated reports whether a session is established.
func (s State) IsAuthenticated() bool {
	return s.Kind == StateAuthenticated && s.Session != nil
}

// clone copies the pointed-to values so callers cannot mutate orchestrator memory.
func (s State) clone() State {
	out := State{Kind: s.Kind}
	if s.Session != nil {
		sess := *s.Session
		if sess.User.EmailVerified != nil {
			v := *sess.User.EmailVerified
			sess.User.EmailVerified = &v
		}
		out.Session = &sess
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}

func loading() State { return State{Kind: StateLoading} }

func unauthenticated() State { return State{Kind: StateUnauthenticated} }

func authenticated(sess shared.Session) State {
	return State{Kind: StateAuthenticated, Session: &sess}
}

func needsVerification(data shared.RegistrationData) State {
	return State{Kind: StateNeedsEmailVerification, Pending: &shared.PendingRegistration{RegistrationData: data}}
}
