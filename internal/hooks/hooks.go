// Package hooks adapts the session routing state to the webmail host's hook
// contract. Each handler receives the host's parameter record, augments it
// from the session and hands it back.
package hooks

import (
	"domainmap/internal/route"
	"domainmap/internal/session"
)

// Hook names as the host knows them.
const (
	HookAuthenticate       = "authenticate"
	HookUserCreate         = "user_create"
	HookStorageConnect     = "storage_connect"
	HookSMTPConnect        = "smtp_connect"
	HookManageSieveConnect = "managesieve_connect"
	HookSieveRulesConnect  = "sieverules_connect"
)

// DefaultAuthHost is what a successful authenticate hook puts into the host
// field. The real storage host is supplied later by storage_connect.
const DefaultAuthHost = "localhost"

// Deps defines what the hook handlers need from the host
type Deps interface {
	session.PluginActivator
	Domains() route.DomainMap
	GlobalPlugins() []string
	Gettext(key string) string
	AuthHost() string
}

// Args is the host's mutable parameter record for a connection hook.
type Args map[string]any

// AuthenticateArgs is the record passed to the authenticate hook.
type AuthenticateArgs struct {
	User  string `json:"user"`
	Abort bool   `json:"abort"`
	Error string `json:"error,omitempty"`
	Host  string `json:"host,omitempty"`
}

// String returns the value of key if it holds a string.
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}
