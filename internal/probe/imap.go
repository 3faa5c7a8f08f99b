package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"domainmap/internal/route"
)

// ProbeIMAP connects to the storage endpoint and lists its capabilities.
func (p *Prober) ProbeIMAP(ctx context.Context, ep route.Endpoint) Result {
	res := Result{Service: ServiceIMAP, Addr: addr(ep.Host, ep.Port), Secure: ep.Secure}
	start := time.Now()

	if ep.Host == "" {
		return finish(res, start, "", fmt.Errorf("no storage host"))
	}

	conn, stop, err := p.dial(ctx, ep.Host, ep.Port)
	if err != nil {
		return finish(res, start, "", fmt.Errorf("failed to connect: %w", err))
	}
	defer stop()

	tlsConfig := p.tlsConfig(ep.Host)
	var client *imapclient.Client
	switch ep.Secure {
	case route.SecureSSL:
		client = imapclient.New(tls.Client(conn, tlsConfig), nil)
	case route.SecureTLS:
		client, err = imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			return finish(res, start, "", fmt.Errorf("failed to start TLS: %w", err))
		}
	default:
		client = imapclient.New(conn, nil)
	}
	defer func() { _ = client.Close() }()

	if err := client.WaitGreeting(); err != nil {
		return finish(res, start, "", fmt.Errorf("failed to read greeting: %w", err))
	}

	caps, err := client.Capability().Wait()
	if err != nil {
		return finish(res, start, "", fmt.Errorf("failed to list capabilities: %w", err))
	}
	_ = client.Logout().Wait()

	detail := "IMAP4rev1"
	if caps.Has(imap.CapIMAP4rev2) {
		detail = "IMAP4rev2"
	}
	return finish(res, start, fmt.Sprintf("%s, %d capabilities", detail, len(caps)), nil)
}
