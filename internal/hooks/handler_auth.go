package hooks

import (
	"domainmap/internal/logging"
	"domainmap/internal/metrics"
	"domainmap/internal/route"
	"domainmap/internal/session"
)

// ===== AUTHENTICATE =====

// HandleAuthenticate resolves the login and populates s. On failure the
// record is marked aborted with a localized message and s stays rejected.
func HandleAuthenticate(deps Deps, s *session.Session, args AuthenticateArgs) AuthenticateArgs {
	log := logging.WithSession(s.ID())

	err := s.Authenticate(args.User, deps.Domains(), deps.GlobalPlugins())
	if err != nil {
		key := route.MessageKey(err)
		args.Abort = true
		args.Host = ""
		if key != "" {
			args.Error = deps.Gettext(key)
			metrics.ResolutionsTotal.WithLabelValues(key).Inc()
		} else {
			args.Error = deps.Gettext(route.KeyFailed)
			metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		}
		metrics.HookInvocationsTotal.WithLabelValues(HookAuthenticate, "rejected").Inc()
		log.Info("login rejected", "user", args.User, "reason", err)
		return args
	}

	r, _ := s.Route()
	args.Abort = false
	args.Error = ""
	args.Host = deps.AuthHost()

	metrics.ResolutionsTotal.WithLabelValues("routed").Inc()
	metrics.HookInvocationsTotal.WithLabelValues(HookAuthenticate, "ok").Inc()
	log.Info("login routed",
		"domain", r.Domain,
		"login_user", r.LoginUser,
		"storage_host", r.Storage.Host,
		"storage_port", r.Storage.Port,
		"smtp", r.SMTP != nil,
		"sieve", r.Sieve != nil,
		"extra_plugins", r.ExtraPlugins,
	)
	return args
}

// ===== REGISTER =====

// HandleRegister runs at the start of every request, before any
// session-scoped hook. It activates the session's extra plugins (except on
// the login screen) and returns the hooks the host must install.
func HandleRegister(deps Deps, s *session.Session, task string) []string {
	hooks := []string{HookAuthenticate, HookUserCreate, HookStorageConnect, HookSMTPConnect}
	if task == session.TaskLogin {
		return hooks
	}

	wiring, err := s.ActivatePlugins(countingActivator{deps}, task)
	if err != nil {
		logging.WithSession(s.ID()).Warn("plugin activation failed", "task", task, "error", err)
	}

	if wiring.ManageSieve {
		hooks = append(hooks, HookManageSieveConnect)
	}
	if wiring.SieveRules {
		hooks = append(hooks, HookSieveRulesConnect)
	}
	return hooks
}

// countingActivator records an activation metric per plugin.
type countingActivator struct {
	session.PluginActivator
}

func (a countingActivator) Activate(name string) error {
	if err := a.PluginActivator.Activate(name); err != nil {
		metrics.PluginActivationsTotal.WithLabelValues(name, "error").Inc()
		return err
	}
	metrics.PluginActivationsTotal.WithLabelValues(name, "ok").Inc()
	return nil
}
