package route

// BuildRoute derives the session route for a resolved login. It never fails:
// malformed optional URIs simply leave the corresponding feature unset.
// globalPlugins are the plugins the host already enables for everyone.
func BuildRoute(local, domain string, cfg DomainConfig, globalPlugins []string) Route {
	r := Route{
		Local:     local,
		Domain:    domain,
		LoginUser: LoginUser(local, domain, cfg.UsernameStyle),
		Storage:   ParseEndpoint(cfg.Host),
	}

	if u, ok := parseURI(cfg.SMTPHost); ok && u.host != "" {
		r.SMTP = &SMTPRoute{EndpointHost: cfg.SMTPHost}
		if u.user != "" && u.pass != "" {
			r.SMTP.User = u.user
			r.SMTP.Pass = u.pass
		}
	}

	if u, ok := parseURI(cfg.SieveHost); ok && u.host != "" {
		r.Sieve = &SieveRoute{
			Host:   u.host,
			Port:   DefaultSievePort,
			UseTLS: u.scheme == "tls",
		}
		if u.port != 0 {
			r.Sieve.Port = u.port
		}
	}

	r.ExtraPlugins = ExtraPlugins(cfg.AddPlugins, globalPlugins)
	return r
}

// LoginUser returns the storage username: the local part for the "local"
// style, the full address otherwise.
func LoginUser(local, domain string, style UsernameStyle) string {
	if style == UsernameLocal {
		return local
	}
	return local + "@" + domain
}

// ExtraPlugins returns the names in add that are not empty, not already
// enabled globally and not repeated, in first-seen order.
func ExtraPlugins(add, global []string) []string {
	if len(add) == 0 {
		return nil
	}

	skip := make(map[string]struct{}, len(global)+len(add))
	for _, name := range global {
		skip[name] = struct{}{}
	}

	var out []string
	for _, name := range add {
		if name == "" {
			continue
		}
		if _, seen := skip[name]; seen {
			continue
		}
		skip[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
