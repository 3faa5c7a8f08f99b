package session

import (
	"domainmap/internal/route"
)

// SieveKind names the two sieve management plugins that ask for a
// connection.
type SieveKind int

const (
	ManageSieve SieveKind = iota
	SieveRules
)

func (k SieveKind) String() string {
	if k == SieveRules {
		return "sieverules"
	}
	return "managesieve"
}

// StorageParams are the IMAP connection parameters.
type StorageParams struct {
	User    string
	Host    string
	Port    uint16
	SSLMode route.Secure
}

// SMTPParams are the SMTP connection parameters. Server is the configured
// URI, unchanged.
type SMTPParams struct {
	Server string
	User   string
	Pass   string
}

// SieveParams are the ManageSieve connection parameters. When the domain has
// no sieve host, only User and Host (the storage host) are set and
// HasEndpoint is false: the caller keeps its own port and TLS setting.
type SieveParams struct {
	User        string
	Host        string
	Port        uint16
	UseTLS      bool
	HasEndpoint bool
}

// Consumer is the read side of a routed session, one method per downstream
// consumer. Every method is a pure projection: calling it any number of
// times, in any order, gives the same result.
type Consumer interface {
	ProvisionUserRecord() (string, error)
	ConnectStorage() (StorageParams, error)
	ConnectSMTP() (SMTPParams, bool, error)
	ConnectSieveManagement(kind SieveKind) (SieveParams, error)
}

var _ Consumer = (*Session)(nil)

// ProvisionUserRecord returns local@domain for bootstrapping a new account.
func (s *Session) ProvisionUserRecord() (string, error) {
	r, err := s.routed()
	if err != nil {
		return "", err
	}
	return r.Address(), nil
}

// ConnectStorage returns the IMAP parameters.
func (s *Session) ConnectStorage() (StorageParams, error) {
	r, err := s.routed()
	if err != nil {
		return StorageParams{}, err
	}
	return StorageParams{
		User:    r.LoginUser,
		Host:    r.Storage.Host,
		Port:    r.Storage.Port,
		SSLMode: r.Storage.Secure,
	}, nil
}

// ConnectSMTP returns the SMTP parameters. ok is false when the domain has no
// SMTP host, in which case the caller keeps its defaults.
func (s *Session) ConnectSMTP() (params SMTPParams, ok bool, err error) {
	r, err := s.routed()
	if err != nil {
		return SMTPParams{}, false, err
	}
	if r.SMTP == nil {
		return SMTPParams{}, false, nil
	}
	return SMTPParams{
		Server: r.SMTP.EndpointHost,
		User:   r.SMTP.User,
		Pass:   r.SMTP.Pass,
	}, true, nil
}

// ConnectSieveManagement returns the ManageSieve parameters for either sieve
// plugin. Both kinds get the same values; the argument key the user name is
// written to differs per plugin and is chosen by the hook layer.
func (s *Session) ConnectSieveManagement(_ SieveKind) (SieveParams, error) {
	r, err := s.routed()
	if err != nil {
		return SieveParams{}, err
	}

	if r.Sieve == nil {
		return SieveParams{User: r.LoginUser, Host: r.Storage.Host}, nil
	}
	return SieveParams{
		User:        r.LoginUser,
		Host:        r.Sieve.Host,
		Port:        r.Sieve.Port,
		UseTLS:      r.Sieve.UseTLS,
		HasEndpoint: true,
	}, nil
}
