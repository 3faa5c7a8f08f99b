package session

import (
	"errors"
	"fmt"
	"slices"
)

// TaskLogin is the host task that only renders the login screen. No plugins
// are activated for it.
const TaskLogin = "login"

// PluginActivator is supplied by the host. It decides how a plugin is
// loaded; the session only decides which ones.
type PluginActivator interface {
	Activate(name string) error
	Loaded() []string
}

// Wiring tells the host which sieve connection hooks to install. The two are
// independent.
type Wiring struct {
	ManageSieve bool
	SieveRules  bool
}

// ActivationError records a plugin the host failed to activate.
type ActivationError struct {
	Plugin string
	Err    error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("failed to activate plugin %q: %v", e.Plugin, e.Err)
}

func (e *ActivationError) Unwrap() error {
	return e.Err
}

// PluginsToActivate returns the session's extra plugins for a request of the
// given task, or nil for the login screen and for sessions that are not
// routed.
func (s *Session) PluginsToActivate(task string) []string {
	if task == TaskLogin || s.state != Routed {
		return nil
	}
	return slices.Clone(s.route.ExtraPlugins)
}

// ActivatePlugins activates the session's extra plugins before any
// session-scoped hook runs. A failing plugin does not stop the others; all
// failures are returned joined. The wiring reflects every plugin the host
// reports as loaded, including globally enabled ones.
func (s *Session) ActivatePlugins(a PluginActivator, task string) (Wiring, error) {
	if task == TaskLogin {
		return Wiring{}, nil
	}

	var errs []error
	for _, name := range s.PluginsToActivate(task) {
		if err := a.Activate(name); err != nil {
			errs = append(errs, &ActivationError{Plugin: name, Err: err})
		}
	}

	loaded := a.Loaded()
	w := Wiring{
		ManageSieve: slices.Contains(loaded, ManageSieve.String()),
		SieveRules:  slices.Contains(loaded, SieveRules.String()),
	}
	return w, errors.Join(errs...)
}
