package probe

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domainmap/internal/metrics"
	"domainmap/internal/route"
)

// scriptedServer accepts connections, writes greeting and answers each line
// with reply(line). An empty reply closes the connection.
func scriptedServer(t *testing.T, greeting string, reply func(line string) string) (string, uint16) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer func() { _ = conn.Close() }()
				_, _ = conn.Write([]byte(greeting))
				r := bufio.NewReader(conn)
				for {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					out := reply(strings.TrimRight(line, "\r\n"))
					if out == "" {
						return
					}
					if _, err := conn.Write([]byte(out)); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)
	return host, uint16(port)
}

func imapServer(t *testing.T) (string, uint16) {
	return scriptedServer(t, "* OK [CAPABILITY IMAP4rev1] ready\r\n", func(line string) string {
		tag, cmd, _ := strings.Cut(line, " ")
		switch strings.ToUpper(cmd) {
		case "CAPABILITY":
			return "* CAPABILITY IMAP4rev1 IDLE AUTH=PLAIN\r\n" + tag + " OK CAPABILITY completed\r\n"
		case "LOGOUT":
			return "* BYE logging out\r\n" + tag + " OK LOGOUT completed\r\n"
		default:
			return tag + " BAD unknown command\r\n"
		}
	})
}

func smtpServer(t *testing.T) (string, uint16) {
	return scriptedServer(t, "220 smtp.test ESMTP ready\r\n", func(line string) string {
		cmd, _, _ := strings.Cut(strings.ToUpper(line), " ")
		switch cmd {
		case "EHLO":
			return "250-smtp.test\r\n250-PIPELINING\r\n250 AUTH PLAIN LOGIN\r\n"
		case "NOOP":
			return "250 OK\r\n"
		case "QUIT":
			return "221 bye\r\n"
		default:
			return "502 not implemented\r\n"
		}
	})
}

func sieveServer(t *testing.T, caps string) (string, uint16) {
	return scriptedServer(t, caps+"OK \"ready\"\r\n", func(line string) string {
		switch line {
		case "LOGOUT":
			return "OK \"bye\"\r\n"
		case "STARTTLS":
			return "NO \"not now\"\r\n"
		default:
			return "NO \"unknown\"\r\n"
		}
	})
}

func closedPort(t *testing.T) (string, uint16) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())
	port, _ := strconv.ParseUint(portStr, 10, 16)
	return "127.0.0.1", uint16(port)
}

func testProber() *Prober {
	return &Prober{Timeout: 5 * time.Second}
}

func TestProbeIMAP(t *testing.T) {
	host, port := imapServer(t)

	res := testProber().ProbeIMAP(context.Background(), route.Endpoint{Host: host, Port: port})
	require.NoError(t, res.Err)
	assert.Equal(t, ServiceIMAP, res.Service)
	assert.Contains(t, res.Detail, "IMAP4rev1")
}

func TestProbeIMAP_NoHost(t *testing.T) {
	res := testProber().ProbeIMAP(context.Background(), route.Endpoint{Port: 143})
	assert.Error(t, res.Err)
	assert.False(t, res.OK())
}

func TestProbeIMAP_Refused(t *testing.T) {
	host, port := closedPort(t)
	res := testProber().ProbeIMAP(context.Background(), route.Endpoint{Host: host, Port: port})
	assert.Error(t, res.Err)
}

func TestProbeSMTP(t *testing.T) {
	host, port := smtpServer(t)

	res := testProber().ProbeSMTP(context.Background(), route.Endpoint{Host: host, Port: port})
	require.NoError(t, res.Err)
	assert.Equal(t, "AUTH PLAIN LOGIN", res.Detail)
}

func TestProbeSieve(t *testing.T) {
	host, port := sieveServer(t, "\"IMPLEMENTATION\" \"Test Sieve\"\r\n\"SIEVE\" \"fileinto\"\r\n")

	res := testProber().ProbeSieve(context.Background(), route.SieveRoute{Host: host, Port: port})
	require.NoError(t, res.Err)
	assert.Equal(t, "Test Sieve", res.Detail)
	assert.Equal(t, route.SecureNone, res.Secure)
}

func TestProbeSieve_TLSNotOffered(t *testing.T) {
	host, port := sieveServer(t, "\"IMPLEMENTATION\" \"Test Sieve\"\r\n")

	res := testProber().ProbeSieve(context.Background(), route.SieveRoute{Host: host, Port: port, UseTLS: true})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "STARTTLS")
}

func TestProbeSieve_STARTTLSRefused(t *testing.T) {
	host, port := sieveServer(t, "\"IMPLEMENTATION\" \"Test Sieve\"\r\n\"STARTTLS\"\r\n")

	res := testProber().ProbeSieve(context.Background(), route.SieveRoute{Host: host, Port: port, UseTLS: true})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "refused")
}

func TestProbe_Route(t *testing.T) {
	imapHost, imapPort := imapServer(t)
	smtpHost, smtpPort := smtpServer(t)
	sieveHost, sievePort := sieveServer(t, "\"IMPLEMENTATION\" \"Test Sieve\"\r\n")

	r := route.Route{
		Local:   "alice",
		Domain:  "corp.example",
		Storage: route.Endpoint{Host: imapHost, Port: imapPort},
		SMTP:    &route.SMTPRoute{EndpointHost: net.JoinHostPort(smtpHost, strconv.Itoa(int(smtpPort)))},
		Sieve:   &route.SieveRoute{Host: sieveHost, Port: sievePort},
	}

	before := testutil.ToFloat64(metrics.ProbeResultsTotal.WithLabelValues(ServiceSMTP, "ok"))
	results := testProber().Probe(context.Background(), r)

	require.Len(t, results, 3)
	assert.Equal(t, ServiceIMAP, results[0].Service)
	assert.Equal(t, ServiceSMTP, results[1].Service)
	assert.Equal(t, ServiceSieve, results[2].Service)
	for _, res := range results {
		assert.NoError(t, res.Err, res.Service)
	}
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ProbeResultsTotal.WithLabelValues(ServiceSMTP, "ok")))
}

func TestProbe_SieveFallsBackToStorageHost(t *testing.T) {
	imapHost, imapPort := imapServer(t)

	r := route.Route{
		Local:   "bob",
		Domain:  "other.example",
		Storage: route.Endpoint{Host: imapHost, Port: imapPort},
	}

	results := (&Prober{Timeout: time.Second}).Probe(context.Background(), r)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, ServiceSieve, results[1].Service)
	assert.Equal(t, net.JoinHostPort(imapHost, "4190"), results[1].Addr)
}

func TestParseSieveCapability(t *testing.T) {
	tests := []struct {
		line, name, value string
	}{
		{`"IMPLEMENTATION" "Dovecot Pigeonhole"`, "IMPLEMENTATION", "Dovecot Pigeonhole"},
		{`"STARTTLS"`, "STARTTLS", ""},
		{`"SASL" ""`, "SASL", ""},
	}
	for _, tt := range tests {
		name, value := parseSieveCapability(tt.line)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.value, value)
	}
}
