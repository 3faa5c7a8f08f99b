package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"domainmap/internal/conf"
	"domainmap/internal/logging"
	"domainmap/internal/mapsource"
	"domainmap/internal/probe"
	"domainmap/internal/session"
)

func main() {
	// Command-line flags
	configPath := flag.String("config", "", "Path to configuration file (searched in default locations if empty)")
	user := flag.String("user", "", "Login name to resolve, e.g. alice@example.com")
	timeout := flag.Duration("timeout", probe.DefaultTimeout, "Timeout per endpoint")
	noDial := flag.Bool("resolve-only", false, "Print the route without connecting")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "Usage: probe -user local@domain [-config path] [-timeout 10s] [-resolve-only]")
		os.Exit(2)
	}

	path, err := conf.FindConfig(*configPath)
	if err != nil {
		fail("failed to find configuration: %v", err)
	}
	cfg, err := conf.LoadConfig(path)
	if err != nil {
		fail("failed to load configuration: %v", err)
	}
	conf.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		fail("invalid configuration: %v", err)
	}
	logging.InitLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	domains, err := mapsource.Load(ctx, cfg)
	if err != nil {
		fail("failed to load domain map: %v", err)
	}

	s := session.New()
	if err := s.Authenticate(*user, domains, cfg.Plugins); err != nil {
		fail("login rejected: %v", err)
	}
	r, _ := s.Route()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "login user\t%s\n", r.LoginUser)
	fmt.Fprintf(w, "storage\t%s:%d\t%s\n", r.Storage.Host, r.Storage.Port, secureName(string(r.Storage.Secure)))
	if r.SMTP != nil {
		ep := r.SMTP.Endpoint()
		fmt.Fprintf(w, "smtp\t%s:%d\t%s\tcredentials=%t\n", ep.Host, ep.Port, secureName(string(ep.Secure)), r.SMTP.HasCredentials())
	} else {
		fmt.Fprintf(w, "smtp\t(host default)\n")
	}
	if r.Sieve != nil {
		fmt.Fprintf(w, "sieve\t%s:%d\ttls=%t\n", r.Sieve.Host, r.Sieve.Port, r.Sieve.UseTLS)
	} else {
		fmt.Fprintf(w, "sieve\t(storage host)\n")
	}
	fmt.Fprintf(w, "extra plugins\t%v\n", r.ExtraPlugins)
	_ = w.Flush()

	if *noDial {
		return
	}

	fmt.Println()
	p := &probe.Prober{Timeout: *timeout}
	results := p.Probe(ctx, r)

	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	failed := false
	for _, res := range results {
		status := "ok"
		detail := res.Detail
		if !res.OK() {
			status = "FAIL"
			detail = res.Err.Error()
			failed = true
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", res.Service, res.Addr, status, res.Latency.Round(time.Millisecond), detail)
	}
	_ = w.Flush()

	if failed {
		os.Exit(1)
	}
}

func secureName(s string) string {
	if s == "" {
		return "plain"
	}
	return s
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
