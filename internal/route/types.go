package route

// UsernameStyle selects the username sent to the storage server.
type UsernameStyle string

const (
	UsernameFull  UsernameStyle = "full"
	UsernameLocal UsernameStyle = "local"
)

// Secure is the transport security mode of a storage endpoint.
type Secure string

const (
	SecureNone Secure = ""
	SecureSSL  Secure = "ssl"
	SecureTLS  Secure = "tls"
)

const (
	DefaultIMAPPort  uint16 = 143
	DefaultIMAPSPort uint16 = 993
	DefaultSievePort uint16 = 4190

	DefaultSMTPPort       uint16 = 25
	DefaultSubmissionPort uint16 = 587
	DefaultSMTPSPort      uint16 = 465
)

// DomainConfig holds the connection settings for one mail domain
type DomainConfig struct {
	Host          string        `yaml:"host" json:"host"`
	UsernameStyle UsernameStyle `yaml:"username_style" json:"username_style,omitempty"`
	SMTPHost      string        `yaml:"smtp_host" json:"smtp_host,omitempty"`
	SieveHost     string        `yaml:"sieve_host" json:"sieve_host,omitempty"`
	AddPlugins    []string      `yaml:"add_plugins" json:"add_plugins,omitempty"`
}

// DomainMap maps a domain name to its settings. It is loaded once and never
// modified afterwards, so concurrent readers need no locking.
type DomainMap map[string]DomainConfig

// Endpoint is a normalized host/port/security tuple.
type Endpoint struct {
	Host   string `json:"host"`
	Port   uint16 `json:"port"`
	Secure Secure `json:"secure,omitempty"`
}

// SMTPRoute keeps the configured SMTP URI verbatim; the SMTP consumer expects
// the full URI rather than a decomposed endpoint.
type SMTPRoute struct {
	EndpointHost string `json:"endpoint_host"`
	User         string `json:"user,omitempty"`
	Pass         string `json:"pass,omitempty"`
}

// HasCredentials reports whether the SMTP URI carried both user and password.
func (s SMTPRoute) HasCredentials() bool {
	return s.User != "" && s.Pass != ""
}

// SieveRoute is the ManageSieve endpoint of a domain.
type SieveRoute struct {
	Host   string `json:"host"`
	Port   uint16 `json:"port"`
	UseTLS bool   `json:"use_tls"`
}

// Route is everything derived for one login. It is built once during
// authentication and only read afterwards.
type Route struct {
	Local        string      `json:"local"`
	Domain       string      `json:"domain"`
	LoginUser    string      `json:"login_user"`
	Storage      Endpoint    `json:"storage"`
	SMTP         *SMTPRoute  `json:"smtp,omitempty"`
	Sieve        *SieveRoute `json:"sieve,omitempty"`
	ExtraPlugins []string    `json:"extra_plugins,omitempty"`
}

// Address returns local@domain as typed by the user.
func (r Route) Address() string {
	return r.Local + "@" + r.Domain
}
