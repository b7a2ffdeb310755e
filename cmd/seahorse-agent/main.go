// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// seahorse-agent caches passphrases for the current user and answers the
// agent protocol on a private Unix socket.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/seahorse-keys/seahorse/internal/agent"
	"github.com/seahorse-keys/seahorse/internal/agentd"
	"github.com/seahorse-keys/seahorse/internal/gpgconf"
	"github.com/seahorse-keys/seahorse/internal/util"
	"github.com/seahorse-keys/seahorse/internal/version"
)

// config holds everything the agent needs to run.
type config struct {
	dataDir          string
	socketPath       string
	gnupgHome        string
	publish          bool
	daemon           bool
	authorizeCommand []string
	idleTimeout      time.Duration
	sweepInterval    time.Duration
	verbose          bool
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	cfg, showVersion, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if showVersion {
		_, _ = fmt.Fprintf(stdout, "seahorse-agent %s\n", version.String())
		return 0
	}

	if cfg.daemon {
		if err := daemonize(cfg, args, stdout); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	newLogger := util.InitLoggerTo
	if detached() {
		newLogger = util.InitTimestampedLoggerTo
	}
	logger := newLogger(stderr, cfg.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ready := func(a *agentState) {
		desc := a.server.Descriptor()
		if !signalReady(desc.String()) {
			_, _ = fmt.Fprint(stdout, shellExport(desc.String()))
		}
	}

	if err := runAgent(ctx, cfg, logger, ready); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (config, bool, error) {
	var cfg config
	var authorizeCommand string
	var showVersion bool

	flagSet := pflag.NewFlagSet("seahorse-agent", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&cfg.dataDir, "data-dir", "d", "", "data directory (or set SEAHORSE_DATA)")
	flagSet.StringVar(&cfg.socketPath, "socket", "", "socket path (default: $XDG_RUNTIME_DIR/seahorse/S.seahorse-agent)")
	flagSet.StringVar(&cfg.gnupgHome, "gnupg-home", "", "GnuPG home holding gpg.conf (or set GNUPGHOME)")
	flagSet.BoolVar(&cfg.publish, "publish", false, "record the agent in gpg.conf while it runs")
	flagSet.BoolVar(&cfg.daemon, "daemon", false, "detach and print the shell snippet exporting GPG_AGENT_INFO")
	flagSet.StringVar(&authorizeCommand, "authorize-command", "", "helper run before releasing a cached passphrase (overrides prefs)")
	flagSet.DurationVar(&cfg.idleTimeout, "idle-timeout", agentd.DefaultIdleTimeout, "close client connections idle this long")
	flagSet.DurationVar(&cfg.sweepInterval, "sweep-interval", time.Minute, "how often expired passphrases are purged")
	flagSet.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug logging")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		return cfg, false, err
	}
	if flagSet.NArg() != 0 {
		return cfg, false, fmt.Errorf("unexpected argument %q", flagSet.Arg(0))
	}

	if cfg.sweepInterval <= 0 {
		return cfg, false, fmt.Errorf("--sweep-interval must be positive")
	}

	cfg.dataDir = util.GetDataDir(cfg.dataDir)
	// A relative socket is taken from the data dir so the published
	// descriptor works from any directory.
	if cfg.socketPath == "" {
		cfg.socketPath = util.DefaultSocketPath(cfg.dataDir)
	}
	cfg.socketPath = util.ResolvePath(cfg.socketPath, cfg.dataDir)
	if cfg.gnupgHome == "" {
		cfg.gnupgHome = gpgconf.HomeDir()
	}
	cfg.authorizeCommand = strings.Fields(authorizeCommand)
	return cfg, showVersion, nil
}

// shellExport is what a detached agent prints for eval in a shell.
func shellExport(descriptor string) string {
	return fmt.Sprintf("%s=%s; export %s\n", agent.EnvVar, descriptor, agent.EnvVar)
}
