// Command certgen writes a CA, a server certificate and optionally a client
// certificate for running the auther snapshot server with mutual TLS.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/auther/internal/certgen"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	client := fs.String("client", "", "also issue a client certificate for this login")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.MkdirAll(*dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", *dir, err)
	}

	ca, caCert, caKey, err := certgen.GenerateCA("Auther CA")
	if err != nil {
		return err
	}
	if err := certgen.WritePair(filepath.Join(*dir, "ca.crt"), filepath.Join(*dir, "ca.key"), caCert, caKey); err != nil {
		return err
	}

	srvCert, srvKey, err := ca.GenerateServerCertificate(splitHosts(*hosts)...)
	if err != nil {
		return err
	}
	if err := certgen.WritePair(filepath.Join(*dir, "server.crt"), filepath.Join(*dir, "server.key"), srvCert, srvKey); err != nil {
		return err
	}

	if *client != "" {
		cliCert, cliKey, err := ca.GenerateUserCertificate(*client)
		if err != nil {
			return err
		}
		if err := certgen.WritePair(filepath.Join(*dir, "client.crt"), filepath.Join(*dir, "client.key"), cliCert, cliKey); err != nil {
			return err
		}
	}

	fmt.Printf("Certificates generated into %s\n", *dir)
	return nil
}

func splitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
