package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-smtp"

	"domainmap/internal/route"
)

// ProbeSMTP connects to the SMTP endpoint and lists its AUTH mechanisms.
func (p *Prober) ProbeSMTP(ctx context.Context, ep route.Endpoint) Result {
	res := Result{Service: ServiceSMTP, Addr: addr(ep.Host, ep.Port), Secure: ep.Secure}
	start := time.Now()

	if ep.Host == "" {
		return finish(res, start, "", fmt.Errorf("no smtp host"))
	}

	conn, stop, err := p.dial(ctx, ep.Host, ep.Port)
	if err != nil {
		return finish(res, start, "", fmt.Errorf("failed to connect: %w", err))
	}
	defer stop()

	tlsConfig := p.tlsConfig(ep.Host)
	var client *smtp.Client
	switch ep.Secure {
	case route.SecureSSL:
		client = smtp.NewClient(tls.Client(conn, tlsConfig))
	case route.SecureTLS:
		client, err = smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			return finish(res, start, "", fmt.Errorf("failed to start TLS: %w", err))
		}
	default:
		client = smtp.NewClient(conn)
	}
	defer func() { _ = client.Close() }()

	// Noop reads the greeting and sends EHLO first.
	if err := client.Noop(); err != nil {
		return finish(res, start, "", fmt.Errorf("failed to greet: %w", err))
	}

	detail := "no AUTH"
	if ok, mechs := client.Extension("AUTH"); ok {
		detail = "AUTH " + mechs
	}
	_ = client.Quit()

	return finish(res, start, detail, nil)
}
