// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package main

import (
	"io"

	"github.com/spf13/pflag"

	"github.com/seahorse-keys/seahorse/internal/command"
	"github.com/seahorse-keys/seahorse/internal/keystore"
	"github.com/seahorse-keys/seahorse/internal/transfer"
	"github.com/seahorse-keys/seahorse/internal/util"
)

func (s *session) cmdTransfer(args []string, ctx *command.Context) error {
	var from, to string
	var remoteFrom, remoteTo bool

	flagSet := pflag.NewFlagSet("transfer", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&from, "from", "", "source keyring directory (default: local keyring)")
	flagSet.StringVar(&to, "to", "", "destination keyring directory")
	flagSet.BoolVar(&remoteFrom, "remote-from", false, "treat the source as remote")
	flagSet.BoolVar(&remoteTo, "remote-to", false, "treat the destination as remote")
	if err := flagSet.Parse(args); err != nil {
		return command.ErrUsage
	}
	ids := flagSet.Args()
	if to == "" {
		return command.ErrUsage
	}
	if from == "" {
		from = util.KeyringDir(ctx.DataDir)
	}

	src, err := keystore.Open(util.ExpandHome(from), location(remoteFrom))
	if err != nil {
		return err
	}
	dst, err := keystore.Open(util.ExpandHome(to), location(remoteTo))
	if err != nil {
		return err
	}

	op := transfer.Start(ctx.Context(), src, dst, ids,
		transfer.WithProgress(ctx.Progress),
		transfer.WithLogger(ctx.Log()))
	ctx.Log().Debug("transfer started", "id", op.ID(), "keys", len(ids))

	if err := op.Wait(); err != nil {
		return err
	}
	for _, id := range op.Imported() {
		ctx.Printf("Transferred %s\n", id)
	}
	ctx.Printf("%d key(s) transferred to %s\n", len(op.Imported()), dst.Dir())
	return nil
}

func location(remote bool) transfer.Location {
	if remote {
		return transfer.LocationRemote
	}
	return transfer.LocationLocal
}
