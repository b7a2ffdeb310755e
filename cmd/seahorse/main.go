// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// seahorse manages the seahorse passphrase agent, its cache preferences
// and the local keyring.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/seahorse-keys/seahorse/internal/command"
	"github.com/seahorse-keys/seahorse/internal/version"
)

const defaultTimeout = 2 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// globalOptions are the flags accepted before the command name.
type globalOptions struct {
	dataDir   string
	gnupgHome string
	socket    string
	timeout   time.Duration
	verbose   bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts globalOptions
	var showVersion, showHelp bool

	flagSet := pflag.NewFlagSet("seahorse", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVarP(&opts.dataDir, "data-dir", "d", "", "data directory (or set SEAHORSE_DATA)")
	flagSet.StringVar(&opts.gnupgHome, "gnupg-home", "", "GnuPG home holding gpg.conf (or set GNUPGHOME)")
	flagSet.StringVar(&opts.socket, "socket", "", "agent socket path for start-agent")
	flagSet.DurationVar(&opts.timeout, "timeout", defaultTimeout, "timeout for agent probes and requests")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	flagSet.BoolVarP(&showHelp, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stdout, flagSet)
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "seahorse %s\n", version.String())
		return 0
	}

	rest := flagSet.Args()
	if showHelp || len(rest) == 0 {
		printUsage(stdout, flagSet)
		if len(rest) == 0 && !showHelp {
			return 2
		}
		return 0
	}

	sess, err := newSession(ctx, opts, stdin, stdout, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer sess.Close()

	if err := sess.Run(rest); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, command.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	_, _ = fmt.Fprintf(w, "seahorse - passphrase agent and keyring manager\n\n")
	_, _ = fmt.Fprintf(w, "Usage:\n")
	_, _ = fmt.Fprintf(w, "  seahorse [options] <command> [args]\n\n")
	_, _ = fmt.Fprintf(w, "Options:\n%s", flagSet.FlagUsages())
	_, _ = fmt.Fprintf(w, "\nExamples:\n")
	_, _ = fmt.Fprintf(w, "  seahorse status\n")
	_, _ = fmt.Fprintf(w, "  seahorse start-agent\n")
	_, _ = fmt.Fprintf(w, "  seahorse prefs set agent/cache_ttl 30\n")
	_, _ = fmt.Fprintf(w, "  seahorse keys export --seal backup.age 0123456789ABCDEF\n")
	_, _ = fmt.Fprintf(w, "  seahorse transfer --to /mnt/usb/keyring --remote-to 0123456789ABCDEF\n")
	_, _ = fmt.Fprintf(w, "\nRun 'seahorse help' for the list of commands.\n")
}
