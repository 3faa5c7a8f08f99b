package server

import (
	"slices"

	"domainmap/internal/hooks"
	"domainmap/internal/route"
)

var _ hooks.Deps = (*requestDeps)(nil)

// requestDeps implements hooks.Deps for a single HTTP request. The remote
// host loads plugins itself, so activation only records the names it must
// load; loaded is what the host reported as already active.
type requestDeps struct {
	srv       *Server
	loaded    []string
	activated []string
}

func (d *requestDeps) Domains() route.DomainMap {
	return d.srv.domains
}

func (d *requestDeps) GlobalPlugins() []string {
	return d.srv.config.Plugins
}

func (d *requestDeps) Gettext(key string) string {
	return d.srv.config.Gettext(key)
}

func (d *requestDeps) AuthHost() string {
	return d.srv.config.AuthHost
}

func (d *requestDeps) Activate(name string) error {
	if !slices.Contains(d.loaded, name) && !slices.Contains(d.activated, name) {
		d.activated = append(d.activated, name)
	}
	return nil
}

func (d *requestDeps) Loaded() []string {
	all := slices.Concat(d.srv.config.Plugins, d.loaded, d.activated)
	slices.Sort(all)
	return slices.Compact(all)
}
