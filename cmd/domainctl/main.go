package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"

	"domainmap/internal/conf"
	"domainmap/internal/db"
	"domainmap/internal/route"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: domainctl -db path <command> [args]

Manage the SQLite domain map used by source type "sqlite".

Commands:
  import <file.yaml>   store every domain of a YAML domain map
  list                 print all domains
  put <domain> <host> [username_style] [smtp_host] [sieve_host] [plugin,...]
                       add or replace one domain
  delete <domain>      remove one domain
  check <file.yaml>    validate a YAML domain map without storing it
`)
}

func main() {
	dbPath := flag.String("db", "/var/lib/domainmap/domains.db", "Path to the domain map database")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	// check does not touch the database
	if args[0] == "check" {
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		m, err := readMap(args[1])
		if err != nil {
			fail("%v", err)
		}
		warnings := conf.CheckDomainMap(m)
		for _, w := range warnings {
			fmt.Println("warning:", w)
		}
		fmt.Printf("%d domains, %d warnings\n", len(m), len(warnings))
		return
	}

	store, err := db.InitDB(*dbPath)
	if err != nil {
		fail("failed to open database: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := run(ctx, store, args); err != nil {
		fail("%v", err)
	}
}

func run(ctx context.Context, store *sqlx.DB, args []string) error {
	switch args[0] {
	case "import":
		if len(args) != 2 {
			return fmt.Errorf("import needs a file")
		}
		m, err := readMap(args[1])
		if err != nil {
			return err
		}
		for _, w := range conf.CheckDomainMap(m) {
			fmt.Println("warning:", w)
		}
		if err := db.ImportDomainMap(ctx, store, m); err != nil {
			return err
		}
		fmt.Printf("imported %d domains\n", len(m))

	case "list":
		m, err := db.LoadDomainMap(ctx, store)
		if err != nil {
			return err
		}
		printMap(m)

	case "put":
		if len(args) < 3 || len(args) > 7 {
			return fmt.Errorf("put needs <domain> <host> [username_style] [smtp_host] [sieve_host] [plugins]")
		}
		cfg := route.DomainConfig{Host: args[2]}
		if len(args) > 3 {
			cfg.UsernameStyle = route.UsernameStyle(args[3])
		}
		if len(args) > 4 {
			cfg.SMTPHost = args[4]
		}
		if len(args) > 5 {
			cfg.SieveHost = args[5]
		}
		if len(args) > 6 && args[6] != "" {
			cfg.AddPlugins = strings.Split(args[6], ",")
		}
		if err := db.PutDomain(ctx, store, args[1], cfg); err != nil {
			return err
		}
		fmt.Printf("stored %s\n", args[1])

	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("delete needs a domain")
		}
		if err := db.DeleteDomain(ctx, store, args[1]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[1])

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func readMap(path string) (route.DomainMap, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read domain map file: %w", err)
	}
	return conf.ParseDomainMap(data)
}

func printMap(m route.DomainMap) {
	domains := make([]string, 0, len(m))
	for d := range m {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tHOST\tSTYLE\tSMTP\tSIEVE\tPLUGINS")
	for _, d := range domains {
		c := m[d]
		// Credentials in smtp_host are not printed.
		smtp := ""
		if c.SMTPHost != "" {
			ep := route.SMTPRoute{EndpointHost: c.SMTPHost}.Endpoint()
			smtp = fmt.Sprintf("%s:%d", ep.Host, ep.Port)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", d, c.Host, c.UsernameStyle, smtp, c.SieveHost, strings.Join(c.AddPlugins, ","))
	}
	_ = w.Flush()
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
