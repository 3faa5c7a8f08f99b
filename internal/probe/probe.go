// Package probe checks that the endpoints of a route answer. It is an
// operator tool: it connects, reads the greeting, negotiates TLS where the
// route asks for it and disconnects without logging in.
package probe

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"domainmap/internal/logging"
	"domainmap/internal/metrics"
	"domainmap/internal/route"
)

// Services probed for a route.
const (
	ServiceIMAP  = "imap"
	ServiceSMTP  = "smtp"
	ServiceSieve = "sieve"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 10 * time.Second

// Result is the outcome of one probe.
type Result struct {
	Service string
	Addr    string
	Secure  route.Secure
	Detail  string
	Latency time.Duration
	Err     error
}

// OK reports whether the endpoint answered as expected.
func (r Result) OK() bool {
	return r.Err == nil
}

// Prober dials route endpoints.
type Prober struct {
	Timeout   time.Duration
	TLSConfig *tls.Config // ServerName is filled in per endpoint
	Dialer    net.Dialer
}

// Probe checks every endpoint of r concurrently. Results are ordered imap,
// smtp, sieve; smtp is omitted when the route has no SMTP host. When the
// route has no sieve host the storage host is probed on the sieve port, the
// same fallback the sieve connection hooks use.
func (p *Prober) Probe(ctx context.Context, r route.Route) []Result {
	type job struct {
		idx int
		run func(context.Context) Result
	}

	jobs := []job{{0, func(ctx context.Context) Result { return p.ProbeIMAP(ctx, r.Storage) }}}
	if r.SMTP != nil {
		ep := r.SMTP.Endpoint()
		jobs = append(jobs, job{len(jobs), func(ctx context.Context) Result { return p.ProbeSMTP(ctx, ep) }})
	}
	sieve := route.SieveRoute{Host: r.Storage.Host, Port: route.DefaultSievePort}
	if r.Sieve != nil {
		sieve = *r.Sieve
	}
	jobs = append(jobs, job{len(jobs), func(ctx context.Context) Result { return p.ProbeSieve(ctx, sieve) }})

	results := make([]Result, len(jobs))

	// Probes report failures in their Result, so the group never cancels.
	var g errgroup.Group
	for _, j := range jobs {
		g.Go(func() error {
			results[j.idx] = j.run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	log := logging.Logger.With("user", r.Address())
	for _, res := range results {
		status := "ok"
		if !res.OK() {
			status = "error"
		}
		metrics.ProbeResultsTotal.WithLabelValues(res.Service, status).Inc()
		log.Debug("probe finished", "service", res.Service, "addr", res.Addr, "status", status, "latency", res.Latency)
	}
	return results
}

func (p *Prober) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultTimeout
}

func (p *Prober) tlsConfig(host string) *tls.Config {
	cfg := &tls.Config{}
	if p.TLSConfig != nil {
		cfg = p.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// dial connects to addr and ties the connection's deadline to ctx and the
// probe timeout. The returned stop func must be called when done.
func (p *Prober) dial(ctx context.Context, host string, port uint16) (net.Conn, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())

	conn, err := p.Dialer.DialContext(ctx, "tcp", addr(host, port))
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stopAfter := context.AfterFunc(ctx, func() { _ = conn.Close() })

	return conn, func() {
		stopAfter()
		cancel()
		_ = conn.Close()
	}, nil
}

func finish(res Result, start time.Time, detail string, err error) Result {
	res.Latency = time.Since(start)
	res.Detail = detail
	res.Err = err
	return res
}

func addr(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
