package route

import "strings"

// SplitUsername splits on the first "@". ok is false when there is no "@".
func SplitUsername(username string) (local, domain string, ok bool) {
	return strings.Cut(username, "@")
}

// ResolveDomain looks up the settings for the domain part of username.
//
// It fails with ErrNoDomain when username has no "@" or an empty domain, and
// with ErrNoHost when the domain is not in m or has no host configured.
// Domain keys are matched exactly.
func ResolveDomain(username string, m DomainMap) (local, domain string, cfg DomainConfig, err error) {
	local, domain, _ = SplitUsername(username)
	if domain == "" {
		return "", "", DomainConfig{}, &LoginError{Username: username, Err: ErrNoDomain}
	}

	cfg, found := m[domain]
	if !found || strings.TrimSpace(cfg.Host) == "" {
		return "", "", DomainConfig{}, &LoginError{Username: username, Domain: domain, Err: ErrNoHost}
	}

	return local, domain, cfg, nil
}
