// Command saldo-token issues a bearer token for one user of the API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/identity"
)

func main() {
	cli.LoadEnvFile()
	if err := run(os.Args[1:], config.Load(), os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, cfg *config.Config, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("saldo-token", flag.ContinueOnError)
	fs.SetOutput(stderr)

	user := fs.String("user", "", "User id the token is issued for")
	ttl := fs.Duration("ttl", cfg.JWTExpiresIn, "Token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*user) == "" {
		fmt.Fprintln(stderr, "Usage: saldo-token -user <id> [-ttl 24h]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flag: user")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set; the server runs in single-user mode without tokens")
	}
	if *ttl < time.Minute {
		return fmt.Errorf("ttl %v is shorter than one minute", *ttl)
	}

	token, expiresAt, err := identity.NewTokenService(cfg.JWTSecret, *ttl).GenerateToken(strings.TrimSpace(*user))
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stderr, "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
	return nil
}
