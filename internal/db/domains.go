package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"domainmap/internal/route"
)

type domainRow struct {
	Domain        string `db:"domain"`
	Host          string `db:"host"`
	UsernameStyle string `db:"username_style"`
	SMTPHost      string `db:"smtp_host"`
	SieveHost     string `db:"sieve_host"`
}

type pluginRow struct {
	Domain string `db:"domain"`
	Plugin string `db:"plugin"`
}

// LoadDomainMap reads every configured domain together with its plugins.
func LoadDomainMap(ctx context.Context, db *sqlx.DB) (route.DomainMap, error) {
	var domains []domainRow
	if err := db.SelectContext(ctx, &domains,
		"SELECT domain, host, username_style, smtp_host, sieve_host FROM domains"); err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}

	var plugins []pluginRow
	if err := db.SelectContext(ctx, &plugins,
		"SELECT domain, plugin FROM domain_plugins ORDER BY domain, position"); err != nil {
		return nil, fmt.Errorf("failed to query domain plugins: %w", err)
	}

	m := make(route.DomainMap, len(domains))
	for _, d := range domains {
		m[d.Domain] = route.DomainConfig{
			Host:          d.Host,
			UsernameStyle: route.UsernameStyle(d.UsernameStyle),
			SMTPHost:      d.SMTPHost,
			SieveHost:     d.SieveHost,
		}
	}
	for _, p := range plugins {
		cfg, ok := m[p.Domain]
		if !ok {
			continue
		}
		cfg.AddPlugins = append(cfg.AddPlugins, p.Plugin)
		m[p.Domain] = cfg
	}

	return m, nil
}

// PutDomain inserts or replaces a domain and its plugin list.
func PutDomain(ctx context.Context, db *sqlx.DB, domain string, cfg route.DomainConfig) error {
	if strings.TrimSpace(domain) == "" {
		return fmt.Errorf("domain cannot be empty")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := domainRow{
		Domain:        domain,
		Host:          cfg.Host,
		UsernameStyle: string(cfg.UsernameStyle),
		SMTPHost:      cfg.SMTPHost,
		SieveHost:     cfg.SieveHost,
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO domains (domain, host, username_style, smtp_host, sieve_host)
		VALUES (:domain, :host, :username_style, :smtp_host, :sieve_host)
		ON CONFLICT(domain) DO UPDATE SET
			host = excluded.host,
			username_style = excluded.username_style,
			smtp_host = excluded.smtp_host,
			sieve_host = excluded.sieve_host`, row)
	if err != nil {
		return fmt.Errorf("failed to store domain: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM domain_plugins WHERE domain = ?", domain); err != nil {
		return fmt.Errorf("failed to clear domain plugins: %w", err)
	}
	for i, plugin := range cfg.AddPlugins {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO domain_plugins (domain, position, plugin) VALUES (?, ?, ?)",
			domain, i, plugin); err != nil {
			return fmt.Errorf("failed to store domain plugin: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit domain: %w", err)
	}
	return nil
}

// DeleteDomain removes a domain. Its plugins are removed by cascade.
func DeleteDomain(ctx context.Context, db *sqlx.DB, domain string) error {
	result, err := db.ExecContext(ctx, "DELETE FROM domains WHERE domain = ?", domain)
	if err != nil {
		return fmt.Errorf("failed to delete domain: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("domain not found: %s", domain)
	}
	return nil
}

// ImportDomainMap stores every entry of m.
func ImportDomainMap(ctx context.Context, db *sqlx.DB, m route.DomainMap) error {
	for domain, cfg := range m {
		if err := PutDomain(ctx, db, domain, cfg); err != nil {
			return fmt.Errorf("failed to import %s: %w", domain, err)
		}
	}
	return nil
}
