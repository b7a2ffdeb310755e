// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/seahorse-keys/seahorse/internal/agent"
	"github.com/seahorse-keys/seahorse/internal/command"
	"github.com/seahorse-keys/seahorse/internal/gpgconf"
	"github.com/seahorse-keys/seahorse/internal/prefs"
	"github.com/seahorse-keys/seahorse/internal/progress"
	"github.com/seahorse-keys/seahorse/internal/util"
)

// session is one CLI invocation: the command table plus everything the
// handlers share.
type session struct {
	registry *command.Registry
	ctx      *command.Context

	// agentBinary is the seahorse-agent executable start-agent launches.
	agentBinary string
	// detector overrides agent detection in tests.
	detector *agent.Detector

	unlisten func()
}

func newSession(ctx context.Context, opts globalOptions, stdin io.Reader, stdout, stderr io.Writer) (*session, error) {
	logger := util.InitLoggerTo(stderr, opts.verbose)

	dataDir := util.GetDataDir(opts.dataDir)
	gnupgHome := opts.gnupgHome
	if gnupgHome == "" {
		gnupgHome = gpgconf.HomeDir()
	}
	socket := util.ResolvePath(opts.socket, dataDir)
	if socket == "" {
		socket = util.DefaultSocketPath(dataDir)
	}

	store, err := prefs.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	tracker := progress.NewTracker()
	id := tracker.Listen(progress.LogListener(logger))

	s := &session{
		registry: command.NewRegistry(),
		ctx: &command.Context{
			Ctx:          ctx,
			DataDir:      dataDir,
			GnuPGHome:    gnupgHome,
			SocketPath:   socket,
			Timeout:      opts.timeout,
			Stdin:        stdin,
			Stdout:       stdout,
			Stderr:       stderr,
			Logger:       logger,
			Prefs:        store,
			Progress:     tracker,
			ReadPassword: passwordReader(stdin, stderr),
		},
		agentBinary: defaultAgentBinary(),
		unlisten:    func() { tracker.Unlisten(id) },
	}
	s.registerCommands()
	return s, nil
}

// Close releases session resources.
func (s *session) Close() {
	if s.unlisten != nil {
		s.unlisten()
	}
}

// Run executes one command line.
func (s *session) Run(args []string) error {
	return s.registry.Run(args, s.ctx)
}

func (s *session) registerCommands() {
	s.registry.MustRegister(
		&command.Command{
			Name:        "status",
			Aliases:     []string{"st"},
			Usage:       "status",
			Description: "Show which agent is running",
			LongHelp: "Looks up the agent descriptor in gpg.conf (gpg-agent-info) and then\n" +
				"$GPG_AGENT_INFO, checks the process, and asks the socket who it is.",
			Category: command.CategoryAgent,
			Handler:  command.HandlerFunc(s.cmdStatus),
		},
		&command.Command{
			Name:        "start-agent",
			Usage:       "start-agent",
			Description: "Start seahorse-agent in the background",
			Category:    command.CategoryAgent,
			Handler:     command.HandlerFunc(s.cmdStartAgent),
		},
		&command.Command{
			Name:        "cache",
			Usage:       "cache <set|clear> [cache-id]",
			Description: "Preset or clear passphrases in the running agent",
			LongHelp: "cache set <cache-id>     prompt for a passphrase and store it\n" +
				"cache clear [cache-id]   forget one passphrase, or all of them",
			Category: command.CategoryCache,
			Handler: command.Subcommands{
				"set":   command.HandlerFunc(s.cmdCacheSet),
				"clear": command.HandlerFunc(s.cmdCacheClear),
			},
		},
		&command.Command{
			Name:        "keys",
			Aliases:     []string{"k"},
			Usage:       "keys <list|add|import|export|delete> [args]",
			Description: "Manage the local keyring",
			LongHelp: "keys list\n" +
				"keys add <file|->\n" +
				"keys import <file|->\n" +
				"keys export [--seal] <file|-> <id>...\n" +
				"keys delete <id>",
			Category: command.CategoryKeys,
			Handler: command.Subcommands{
				"list":   command.HandlerFunc(s.cmdKeysList),
				"ls":     command.HandlerFunc(s.cmdKeysList),
				"add":    command.HandlerFunc(s.cmdKeysAdd),
				"import": command.HandlerFunc(s.cmdKeysImport),
				"export": command.HandlerFunc(s.cmdKeysExport),
				"delete": command.HandlerFunc(s.cmdKeysDelete),
				"rm":     command.HandlerFunc(s.cmdKeysDelete),
			},
		},
		&command.Command{
			Name:        "transfer",
			Usage:       "transfer [--from dir] --to dir [--remote-from] [--remote-to] <id>...",
			Description: "Copy keys from one keyring to another",
			LongHelp: "Exports the keys from the source keyring and imports them into the\n" +
				"destination. --from defaults to the local keyring. --remote-* mark a\n" +
				"keyring as remote, which only changes the progress labels.",
			Category: command.CategoryKeys,
			Handler:  command.HandlerFunc(s.cmdTransfer),
		},
		&command.Command{
			Name:        "prefs",
			Usage:       "prefs [set <key> <value> | edit]",
			Description: "Show or change passphrase cache preferences",
			Category:    command.CategoryConfig,
			Handler:     command.HandlerFunc(s.cmdPrefs),
		},
		&command.Command{
			Name:        "help",
			Aliases:     []string{"?"},
			Usage:       "help [command]",
			Description: "Show help",
			Category:    command.CategoryInfo,
			Handler:     &command.HelpHandler{Registry: s.registry},
		},
	)
}

// newDetector builds the agent detector for this session.
func (s *session) newDetector() *agent.Detector {
	if s.detector != nil {
		return s.detector
	}
	return &agent.Detector{
		Options: gpgconf.Open(s.ctx.GnuPGHome),
		Prober:  &agent.Prober{Timeout: s.ctx.Timeout, Logger: s.ctx.Log()},
		Logger:  s.ctx.Log(),
	}
}

// passwordReader prompts on the terminal when stdin is one, otherwise it
// reads a line from stdin.
func passwordReader(stdin io.Reader, stderr io.Writer) func(string) ([]byte, error) {
	if f, ok := stdin.(*os.File); ok {
		fd := int(f.Fd()) // #nosec G115 - file descriptors are small integers
		if term.IsTerminal(fd) {
			return func(prompt string) ([]byte, error) {
				_, _ = fmt.Fprint(stderr, prompt)
				defer func() { _, _ = fmt.Fprintln(stderr) }()
				return term.ReadPassword(fd)
			}
		}
	}

	reader := bufio.NewReader(stdin)
	return func(prompt string) ([]byte, error) {
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(strings.TrimSpace(prompt), ":"), err)
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
}
