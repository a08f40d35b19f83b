// Package main generates local development credentials under a directory:
// a self-signed TLS certificate for the server, an RSA key pair for identity
// tokens, and prints a token for the requested subject.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/VesselPortal/internal/devcert"
)

type options struct {
	dir     string
	hosts   string
	subject string
	issuer  string
	ttl     time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.dir, "dir", "certs", "output directory")
	flag.StringVar(&o.hosts, "hosts", "localhost,127.0.0.1", "comma-separated TLS host names")
	flag.StringVar(&o.subject, "sub", "", "print a token for this external auth ID")
	flag.StringVar(&o.issuer, "iss", "", "token issuer")
	flag.DurationVar(&o.ttl, "ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	token, err := run(o)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Credentials written to ./%s\n", o.dir)
	fmt.Println("Run the server with TLS_CERT_FILE, TLS_KEY_FILE and JWT_PUBLIC_KEY_PATH pointing there.")
	if token != "" {
		fmt.Printf("Token for %s:\n%s\n", o.subject, token)
	}
}

// run writes server.crt, server.key, jwt.key and jwt.pub into o.dir, keeping
// an existing jwt.key so earlier tokens stay valid, and signs a token when
// o.subject is set.
func run(o options) (string, error) {
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", o.dir, err)
	}

	certPEM, keyPEM, err := devcert.GenerateServerCertificate(splitHosts(o.hosts), 365*24*time.Hour)
	if err != nil {
		return "", err
	}
	if err := writeFiles(o.dir, map[string][]byte{"server.crt": certPEM, "server.key": keyPEM}); err != nil {
		return "", err
	}

	keyPath := filepath.Join(o.dir, "jwt.key")
	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		privPEM, pubPEM, err := devcert.GenerateSigningKey(2048)
		if err != nil {
			return "", err
		}
		if err := writeFiles(o.dir, map[string][]byte{"jwt.key": privPEM, "jwt.pub": pubPEM}); err != nil {
			return "", err
		}
	}

	if o.subject == "" {
		return "", nil
	}
	key, err := devcert.LoadSigningKey(keyPath)
	if err != nil {
		return "", err
	}
	return devcert.SignToken(key, o.subject, o.issuer, o.ttl)
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func writeFiles(dir string, files map[string][]byte) error {
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
