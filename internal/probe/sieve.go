package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"domainmap/internal/route"
)

// ProbeSieve reads the ManageSieve capability greeting and, when the route
// asks for TLS, upgrades the connection with STARTTLS.
func (p *Prober) ProbeSieve(ctx context.Context, sr route.SieveRoute) Result {
	secure := route.SecureNone
	if sr.UseTLS {
		secure = route.SecureTLS
	}
	res := Result{Service: ServiceSieve, Addr: addr(sr.Host, sr.Port), Secure: secure}
	start := time.Now()

	if sr.Host == "" {
		return finish(res, start, "", fmt.Errorf("no sieve host"))
	}

	conn, stop, err := p.dial(ctx, sr.Host, sr.Port)
	if err != nil {
		return finish(res, start, "", fmt.Errorf("failed to connect: %w", err))
	}
	defer stop()

	tc := textproto.NewConn(conn)
	caps, err := readSieveResponse(tc)
	if err != nil {
		return finish(res, start, "", fmt.Errorf("failed to read greeting: %w", err))
	}
	detail := caps["IMPLEMENTATION"]

	if sr.UseTLS {
		if _, ok := caps["STARTTLS"]; !ok {
			return finish(res, start, detail, fmt.Errorf("server does not offer STARTTLS"))
		}
		if err := tc.PrintfLine("STARTTLS"); err != nil {
			return finish(res, start, detail, fmt.Errorf("failed to send STARTTLS: %w", err))
		}
		if _, err := readSieveResponse(tc); err != nil {
			return finish(res, start, detail, fmt.Errorf("STARTTLS refused: %w", err))
		}

		tlsConn := tls.Client(conn, p.tlsConfig(sr.Host))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return finish(res, start, detail, fmt.Errorf("failed TLS handshake: %w", err))
		}
		tc = textproto.NewConn(tlsConn)

		// The server repeats its capabilities after the handshake.
		if _, err := readSieveResponse(tc); err != nil {
			return finish(res, start, detail, fmt.Errorf("failed to read capabilities after STARTTLS: %w", err))
		}
	}

	_ = tc.PrintfLine("LOGOUT")
	return finish(res, start, detail, nil)
}

// readSieveResponse reads capability lines up to the final OK. A NO or BYE
// response is returned as an error.
func readSieveResponse(tc *textproto.Conn) (map[string]string, error) {
	caps := map[string]string{}
	for {
		line, err := tc.ReadLine()
		if err != nil {
			return nil, err
		}

		switch {
		case line == "OK" || strings.HasPrefix(line, "OK "):
			return caps, nil
		case strings.HasPrefix(line, "NO"), strings.HasPrefix(line, "BYE"):
			return nil, fmt.Errorf("server said %q", line)
		case strings.HasPrefix(line, `"`):
			name, value := parseSieveCapability(line)
			caps[strings.ToUpper(name)] = value
		default:
			return nil, fmt.Errorf("unexpected line %q", line)
		}
	}
}

// parseSieveCapability splits `"NAME" "value"` into its two strings.
func parseSieveCapability(line string) (name, value string) {
	rest := strings.TrimPrefix(line, `"`)
	name, rest, _ = strings.Cut(rest, `"`)
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, `"`) {
		value = strings.TrimSuffix(strings.TrimPrefix(rest, `"`), `"`)
	}
	return name, value
}
