// Package session holds the per-login routing state and the consumer
// operations that project it onto connection parameters.
//
// A Session is owned by exactly one webmail session. It is populated once by
// Authenticate and only read afterwards, so it needs no locking; sessions
// never share state with each other.
package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"domainmap/internal/route"
)

// State is the lifecycle position of a session.
type State int

const (
	Unauthenticated State = iota
	Resolving
	Routed
	Rejected
	Closed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Resolving:
		return "resolving"
	case Routed:
		return "routed"
	case Rejected:
		return "rejected"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNotRouted is returned by consumer operations before a successful
	// authentication, after a rejected one, or after Close.
	ErrNotRouted = errors.New("session is not routed")
	// ErrClosed is returned when authenticating on a closed session.
	ErrClosed = errors.New("session is closed")
)

// Session is the routing state S of one webmail session.
type Session struct {
	id    string
	state State
	route route.Route
	err   error
}

// New returns an empty, unauthenticated session with a fresh ID.
func New() *Session {
	return &Session{id: uuid.NewString(), state: Unauthenticated}
}

// FromRoute rebuilds a routed session from a previously derived route, e.g.
// one carried in a sealed token between requests.
func FromRoute(id string, r route.Route) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{id: id, state: Routed, route: r}
}

// ID identifies the session in logs and tokens.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Err returns the login error of a rejected session.
func (s *Session) Err() error {
	return s.err
}

// Route returns the derived route; ok is false unless the session is routed.
func (s *Session) Route() (route.Route, bool) {
	if s.state != Routed {
		return route.Route{}, false
	}
	return s.route, true
}

// Authenticate resolves username against domains and populates the session.
//
// Any state left by an earlier attempt is discarded first, so a re-login on
// the same session never sees the previous domain's route or plugins. On a
// login error the session moves to Rejected and the error is returned.
func (s *Session) Authenticate(username string, domains route.DomainMap, globalPlugins []string) error {
	if s.state == Closed {
		return ErrClosed
	}

	s.reset()
	s.state = Resolving

	local, domain, cfg, err := route.ResolveDomain(username, domains)
	if err != nil {
		s.state = Rejected
		s.err = err
		return err
	}

	s.route = route.BuildRoute(local, domain, cfg, globalPlugins)
	s.state = Routed
	return nil
}

// Close discards the route. The session cannot be used afterwards.
func (s *Session) Close() {
	s.reset()
	s.state = Closed
}

func (s *Session) reset() {
	s.route = route.Route{}
	s.err = nil
	s.state = Unauthenticated
}

func (s *Session) routed() (route.Route, error) {
	if s.state != Routed {
		return route.Route{}, fmt.Errorf("%w (state %s)", ErrNotRouted, s.state)
	}
	return s.route, nil
}
