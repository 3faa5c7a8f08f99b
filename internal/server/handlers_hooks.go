package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"domainmap/internal/hooks"
	"domainmap/internal/logging"
	"domainmap/internal/session"
	"domainmap/internal/token"
)

const (
	ctxRequest = "hook_request"
	ctxSession = "session"
)

// hookRequest is the body of every hook call except authenticate.
type hookRequest struct {
	Session string     `json:"session"`
	Task    string     `json:"task,omitempty"`
	Loaded  []string   `json:"loaded,omitempty"` // plugins the host already runs
	Args    hooks.Args `json:"args,omitempty"`
}

type authenticateResponse struct {
	hooks.AuthenticateArgs
	Session string `json:"session,omitempty"`
}

type initResponse struct {
	Hooks    []string `json:"hooks"`
	Activate []string `json:"activate"` // plugins the host must load for this request
}

type connectResponse struct {
	Args hooks.Args `json:"args"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ===== AUTHENTICATE =====

func (s *Server) handleAuthenticate(c echo.Context) error {
	var args hooks.AuthenticateArgs
	if err := c.Bind(&args); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	// Every login starts from an empty session.
	sess := session.New()
	out := hooks.HandleAuthenticate(s.deps(nil), sess, args)

	resp := authenticateResponse{AuthenticateArgs: out}
	if !out.Abort {
		tok, err := s.sealer.Seal(sess)
		if err != nil {
			logging.WithSession(sess.ID()).Error("failed to seal session", "error", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to seal session"})
		}
		resp.Session = tok
	}

	return c.JSON(http.StatusOK, resp)
}

// ===== INIT =====

func (s *Server) handleInit(c echo.Context) error {
	req := c.Get(ctxRequest).(*hookRequest)
	sess := c.Get(ctxSession).(*session.Session)

	deps := s.deps(req.Loaded)
	hookNames := hooks.HandleRegister(deps, sess, req.Task)

	activate := deps.activated
	if activate == nil {
		activate = []string{}
	}
	return c.JSON(http.StatusOK, initResponse{Hooks: hookNames, Activate: activate})
}

// ===== CONNECT HOOKS =====

type connectFunc func(session.Consumer, hooks.Args) hooks.Args

func (s *Server) connectHook(fn connectFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Get(ctxRequest).(*hookRequest)
		sess := c.Get(ctxSession).(*session.Session)

		args := fn(sess, req.Args)
		if args == nil {
			args = hooks.Args{}
		}
		return c.JSON(http.StatusOK, connectResponse{Args: args})
	}
}

// ===== SESSION =====

// loadSession binds the hook request and opens its session token. A request
// without a token gets an unauthenticated session, which the handlers pass
// through unchanged.
func (s *Server) loadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := &hookRequest{}
		if err := c.Bind(req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}

		sess := session.New()
		if req.Session != "" {
			opened, err := s.sealer.Open(req.Session)
			if err != nil {
				status := "invalid"
				if errors.Is(err, token.ErrExpired) {
					status = "expired"
				}
				logging.Logger.Info("session token rejected", "path", c.Path(), "reason", status)
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
			}
			sess = opened
		}

		c.Set(ctxRequest, req)
		c.Set(ctxSession, sess)
		return next(c)
	}
}

func (s *Server) deps(loaded []string) *requestDeps {
	return &requestDeps{srv: s, loaded: loaded}
}
