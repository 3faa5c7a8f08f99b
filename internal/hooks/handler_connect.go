package hooks

import (
	"domainmap/internal/logging"
	"domainmap/internal/metrics"
	"domainmap/internal/session"
)

// The connection handlers below only read the session. A session that is not
// routed leaves the record untouched.

func passthrough(hook string, err error, args Args) Args {
	metrics.HookInvocationsTotal.WithLabelValues(hook, "skipped").Inc()
	logging.Logger.Debug("hook skipped", "hook", hook, "error", err)
	return args
}

func ensure(args Args) Args {
	if args == nil {
		return Args{}
	}
	return args
}

// ===== USER CREATE =====

// HandleUserCreate sets user_email for a newly provisioned account.
func HandleUserCreate(c session.Consumer, args Args) Args {
	args = ensure(args)
	email, err := c.ProvisionUserRecord()
	if err != nil {
		return passthrough(HookUserCreate, err, args)
	}
	args["user_email"] = email
	metrics.HookInvocationsTotal.WithLabelValues(HookUserCreate, "ok").Inc()
	return args
}

// ===== STORAGE CONNECT =====

// HandleStorageConnect points the IMAP connection at the domain's server.
func HandleStorageConnect(c session.Consumer, args Args) Args {
	args = ensure(args)
	p, err := c.ConnectStorage()
	if err != nil {
		return passthrough(HookStorageConnect, err, args)
	}
	args["user"] = p.User
	args["host"] = p.Host
	args["port"] = int(p.Port)
	args["ssl"] = string(p.SSLMode)
	args["ssl_mode"] = string(p.SSLMode)
	metrics.HookInvocationsTotal.WithLabelValues(HookStorageConnect, "ok").Inc()
	return args
}

// ===== SMTP CONNECT =====

// HandleSMTPConnect sets the SMTP server and credentials when the domain has
// an SMTP host; otherwise the host's defaults stay.
func HandleSMTPConnect(c session.Consumer, args Args) Args {
	args = ensure(args)
	p, ok, err := c.ConnectSMTP()
	if err != nil {
		return passthrough(HookSMTPConnect, err, args)
	}
	if !ok {
		metrics.HookInvocationsTotal.WithLabelValues(HookSMTPConnect, "default").Inc()
		return args
	}
	args["smtp_server"] = p.Server
	args["smtp_user"] = p.User
	args["smtp_pass"] = p.Pass
	metrics.HookInvocationsTotal.WithLabelValues(HookSMTPConnect, "ok").Inc()
	return args
}

// ===== SIEVE =====

// HandleManageSieveConnect fills the managesieve plugin's record.
func HandleManageSieveConnect(c session.Consumer, args Args) Args {
	return sieveConnect(c, session.ManageSieve, HookManageSieveConnect, "user", args)
}

// HandleSieveRulesConnect fills the sieverules plugin's record, which names
// the user field "username".
func HandleSieveRulesConnect(c session.Consumer, args Args) Args {
	return sieveConnect(c, session.SieveRules, HookSieveRulesConnect, "username", args)
}

func sieveConnect(c session.Consumer, kind session.SieveKind, hook, userKey string, args Args) Args {
	args = ensure(args)
	p, err := c.ConnectSieveManagement(kind)
	if err != nil {
		return passthrough(hook, err, args)
	}
	args[userKey] = p.User
	args["host"] = p.Host
	if p.HasEndpoint {
		args["port"] = int(p.Port)
		args["usetls"] = p.UseTLS
	}
	metrics.HookInvocationsTotal.WithLabelValues(hook, "ok").Inc()
	return args
}
