package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domainmap/internal/conf"
	"domainmap/internal/route"
	"domainmap/internal/token"
)

var testDomains = route.DomainMap{
	"corp.example": {
		Host:          "imaps://mail.corp.example",
		UsernameStyle: route.UsernameLocal,
		SieveHost:     "tls://sieve.corp.example",
		AddPlugins:    []string{"managesieve", "archive"},
	},
	"other.example": {
		Host:     "tls://imap.other.example",
		SMTPHost: "tls://relay:pw@smtp.other.example:587",
	},
}

func newTestServer(t *testing.T) (*Server, *clockwork.FakeClock) {
	t.Helper()
	cfg := conf.DefaultConfig()
	cfg.Plugins = []string{"archive"}
	cfg.Messages[route.KeyNoHost] = "Unknown domain"

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	sealer, err := token.NewSealer([]byte("test-secret"), time.Hour, clock)
	require.NoError(t, err)

	return NewServer(cfg, testDomains, sealer), clock
}

func post(t *testing.T, srv *Server, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func login(t *testing.T, srv *Server, user string) string {
	t.Helper()
	rec, out := post(t, srv, "/hooks/authenticate", map[string]any{"user": user})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, out["abort"])
	tok, _ := out["session"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestHandleLiveness(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, float64(2), out["domains"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	login(t, srv, "alice@corp.example")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "domainmap_resolutions_total")
}

func TestAuthenticate(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, out := post(t, srv, "/hooks/authenticate", map[string]any{"user": "alice@corp.example"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["abort"])
	assert.Equal(t, "localhost", out["host"])
	assert.Equal(t, "alice@corp.example", out["user"])
	assert.NotEmpty(t, out["session"])
}

func TestAuthenticate_Rejected(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name    string
		user    string
		message string
	}{
		{"no domain", "alice", conf.DefaultMessages()[route.KeyNoDomain]},
		{"unknown domain", "bob@nowhere.test", "Unknown domain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, srv, "/hooks/authenticate", map[string]any{"user": tt.user})
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, true, out["abort"])
			assert.Equal(t, tt.message, out["error"])
			assert.Nil(t, out["session"])
		})
	}
}

func TestAuthenticate_BadBody(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/hooks/authenticate", strings.NewReader("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInit(t *testing.T) {
	srv, _ := newTestServer(t)
	tok := login(t, srv, "alice@corp.example")

	rec, out := post(t, srv, "/hooks/init", map[string]any{"session": tok, "task": "mail"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"managesieve"}, out["activate"])
	assert.Contains(t, out["hooks"], "managesieve_connect")
	assert.NotContains(t, out["hooks"], "sieverules_connect")

	// Already loaded by the host: nothing to activate, hook still wired.
	rec, out = post(t, srv, "/hooks/init", map[string]any{
		"session": tok, "task": "mail", "loaded": []string{"managesieve"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, out["activate"])
	assert.Contains(t, out["hooks"], "managesieve_connect")
}

func TestInit_LoginTask(t *testing.T) {
	srv, _ := newTestServer(t)
	tok := login(t, srv, "alice@corp.example")

	_, out := post(t, srv, "/hooks/init", map[string]any{"session": tok, "task": "login"})
	assert.Equal(t, []any{}, out["activate"])
	assert.NotContains(t, out["hooks"], "managesieve_connect")
}

func TestInit_NoSession(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, out := post(t, srv, "/hooks/init", map[string]any{"task": "mail", "loaded": []string{"sieverules"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, out["activate"])
	assert.Contains(t, out["hooks"], "sieverules_connect")
}

func TestStorageConnect(t *testing.T) {
	srv, _ := newTestServer(t)
	tok := login(t, srv, "alice@corp.example")

	rec, out := post(t, srv, "/hooks/storage_connect", map[string]any{
		"session": tok,
		"args":    map[string]any{"host": "localhost", "port": 143},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	args := out["args"].(map[string]any)
	assert.Equal(t, "alice", args["user"])
	assert.Equal(t, "mail.corp.example", args["host"])
	assert.Equal(t, float64(993), args["port"])
	assert.Equal(t, "ssl", args["ssl"])
	assert.Equal(t, "ssl", args["ssl_mode"])
}

func TestSMTPConnect(t *testing.T) {
	srv, _ := newTestServer(t)

	_, out := post(t, srv, "/hooks/smtp_connect", map[string]any{
		"session": login(t, srv, "bob@other.example"),
		"args":    map[string]any{"smtp_server": "default"},
	})
	args := out["args"].(map[string]any)
	assert.Equal(t, "tls://relay:pw@smtp.other.example:587", args["smtp_server"])
	assert.Equal(t, "relay", args["smtp_user"])
	assert.Equal(t, "pw", args["smtp_pass"])

	_, out = post(t, srv, "/hooks/smtp_connect", map[string]any{
		"session": login(t, srv, "alice@corp.example"),
		"args":    map[string]any{"smtp_server": "default"},
	})
	args = out["args"].(map[string]any)
	assert.Equal(t, "default", args["smtp_server"])
	assert.NotContains(t, args, "smtp_user")
}

func TestSieveConnect(t *testing.T) {
	srv, _ := newTestServer(t)

	_, out := post(t, srv, "/hooks/managesieve_connect", map[string]any{
		"session": login(t, srv, "alice@corp.example"),
	})
	args := out["args"].(map[string]any)
	assert.Equal(t, "alice", args["user"])
	assert.Equal(t, "sieve.corp.example", args["host"])
	assert.Equal(t, float64(4190), args["port"])
	assert.Equal(t, true, args["usetls"])

	_, out = post(t, srv, "/hooks/sieverules_connect", map[string]any{
		"session": login(t, srv, "bob@other.example"),
	})
	args = out["args"].(map[string]any)
	assert.Equal(t, "bob@other.example", args["username"])
	assert.Equal(t, "imap.other.example", args["host"])
	assert.NotContains(t, args, "port")
}

func TestUserCreate(t *testing.T) {
	srv, _ := newTestServer(t)

	_, out := post(t, srv, "/hooks/user_create", map[string]any{
		"session": login(t, srv, "alice@corp.example"),
	})
	args := out["args"].(map[string]any)
	assert.Equal(t, "alice@corp.example", args["user_email"])
}

func TestConnectHook_NoSessionPassesThrough(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, out := post(t, srv, "/hooks/storage_connect", map[string]any{
		"args": map[string]any{"host": "default.example"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"host": "default.example"}, out["args"])
}

func TestConnectHook_TokenErrors(t *testing.T) {
	srv, clock := newTestServer(t)
	tok := login(t, srv, "alice@corp.example")

	rec, _ := post(t, srv, "/hooks/storage_connect", map[string]any{"session": tok + "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	clock.Advance(2 * time.Hour)
	rec, out := post(t, srv, "/hooks/storage_connect", map[string]any{"session": tok})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, token.ErrExpired.Error(), out["error"])
}

func TestRequestDepsLoaded(t *testing.T) {
	srv, _ := newTestServer(t)
	d := srv.deps([]string{"zipdownload", "archive"})

	require.NoError(t, d.Activate("managesieve"))
	require.NoError(t, d.Activate("managesieve"))
	require.NoError(t, d.Activate("zipdownload"))

	assert.Equal(t, []string{"managesieve"}, d.activated)
	assert.Equal(t, []string{"archive", "managesieve", "zipdownload"}, d.Loaded())
}
