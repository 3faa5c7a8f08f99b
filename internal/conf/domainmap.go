package conf

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"domainmap/internal/route"
)

// ParseDomainMap parses a YAML domain map. The document may either hold the
// map under a top-level "domainmap" key or be the map itself. A document
// with a top-level "domainmap" key is always read in the wrapped form.
func ParseDomainMap(data []byte) (route.DomainMap, error) {
	var top yaml.MapSlice
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to parse domain map: %w", err)
	}

	if hasKey(top, "domainmap") {
		var doc struct {
			DomainMap route.DomainMap `yaml:"domainmap"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse domain map: %w", err)
		}
		if doc.DomainMap == nil {
			return route.DomainMap{}, nil
		}
		return doc.DomainMap, nil
	}

	m := route.DomainMap{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse domain map: %w", err)
	}
	return m, nil
}

func hasKey(doc yaml.MapSlice, key string) bool {
	for _, item := range doc {
		if k, ok := item.Key.(string); ok && k == key {
			return true
		}
	}
	return false
}

// CheckDomainMap returns one warning per questionable entry, sorted by
// domain. Entries without a host are kept: logins for them fail with a
// "nohost" error instead of the service refusing to start.
func CheckDomainMap(m route.DomainMap) []string {
	var warnings []string
	for domain, cfg := range m {
		if strings.TrimSpace(cfg.Host) == "" {
			warnings = append(warnings, fmt.Sprintf("%s: host is empty, logins will be rejected", domain))
		}
		switch cfg.UsernameStyle {
		case "", route.UsernameFull, route.UsernameLocal:
		default:
			warnings = append(warnings, fmt.Sprintf("%s: unknown username_style %q, using full", domain, cfg.UsernameStyle))
		}
		if domain != strings.ToLower(domain) {
			warnings = append(warnings, fmt.Sprintf("%s: domain has upper case letters, lookups are case sensitive", domain))
		}
	}
	sort.Strings(warnings)
	return warnings
}
