// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/seahorse-keys/seahorse/internal/command"
	"github.com/seahorse-keys/seahorse/internal/crypto"
	"github.com/seahorse-keys/seahorse/internal/fsutil"
	"github.com/seahorse-keys/seahorse/internal/keystore"
	"github.com/seahorse-keys/seahorse/internal/transfer"
	"github.com/seahorse-keys/seahorse/internal/util"
)

func openKeyring(ctx *command.Context) (*keystore.FileKeyStore, error) {
	return keystore.Open(util.KeyringDir(ctx.DataDir), transfer.LocationLocal)
}

func (s *session) cmdKeysList(args []string, ctx *command.Context) error {
	if len(args) != 0 {
		return command.ErrUsage
	}
	ks, err := openKeyring(ctx)
	if err != nil {
		return err
	}
	keys, err := ks.List(ctx.Context())
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		ctx.Printf("No keys in %s\n", ks.Dir())
		return nil
	}

	ctx.Printf("%-16s  %8s  %s\n", "ID", "SIZE", "CREATED")
	for _, k := range keys {
		ctx.Printf("%-16s  %8d  %s\n", k.ID, k.Size, k.CreatedAt.Format("2006-01-02 15:04"))
	}
	ctx.Printf("\n%d key(s)\n", len(keys))
	return nil
}

func (s *session) cmdKeysAdd(args []string, ctx *command.Context) error {
	if len(args) != 1 {
		return command.ErrUsage
	}
	data, err := readInput(ctx, args[0])
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(data)
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", args[0])
	}

	ks, err := openKeyring(ctx)
	if err != nil {
		return err
	}
	id, err := ks.Add(ctx.Context(), data)
	if err != nil {
		return err
	}
	ctx.Printf("Added %s\n", id)
	return nil
}

func (s *session) cmdKeysImport(args []string, ctx *command.Context) error {
	if len(args) != 1 {
		return command.ErrUsage
	}
	data, err := readInput(ctx, args[0])
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(data)

	if keystore.IsSealed(data) {
		pass, err := ctx.ReadSecret("Bundle passphrase: ")
		if err != nil {
			return err
		}
		opened, err := keystore.OpenBundle(bytes.NewReader(data), string(pass))
		crypto.ZeroBytes(pass)
		if err != nil {
			return err
		}
		defer crypto.ZeroBytes(opened)
		data = opened
	}

	ks, err := openKeyring(ctx)
	if err != nil {
		return err
	}
	ids, err := ks.Import(ctx.Context(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	for _, id := range ids {
		ctx.Printf("Imported %s\n", id)
	}
	ctx.Printf("%d key(s) imported\n", len(ids))
	return nil
}

func (s *session) cmdKeysExport(args []string, ctx *command.Context) error {
	var seal bool
	flagSet := pflag.NewFlagSet("keys export", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&seal, "seal", false, "encrypt the bundle with a passphrase")
	if err := flagSet.Parse(args); err != nil {
		return command.ErrUsage
	}
	rest := flagSet.Args()
	if len(rest) < 2 {
		return command.ErrUsage
	}
	target, ids := rest[0], rest[1:]

	ks, err := openKeyring(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := ks.Export(ctx.Context(), ids, &buf); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	plain := buf.Bytes()
	defer crypto.ZeroBytes(plain)

	out := plain
	if seal {
		pass, err := readNewPassphrase(ctx)
		if err != nil {
			return err
		}
		var sealed bytes.Buffer
		err = pass.WithBytes(func(b []byte) error {
			return keystore.SealBundle(&sealed, plain, string(b))
		})
		pass.Destroy()
		if err != nil {
			return err
		}
		out = sealed.Bytes()
	}

	if err := writeOutput(ctx, target, out); err != nil {
		return err
	}
	if target != "-" {
		ctx.Printf("Exported %d key(s) to %s\n", len(ids), target)
	}
	return nil
}

func (s *session) cmdKeysDelete(args []string, ctx *command.Context) error {
	if len(args) != 1 {
		return command.ErrUsage
	}
	ks, err := openKeyring(ctx)
	if err != nil {
		return err
	}
	if err := ks.Delete(ctx.Context(), args[0]); err != nil {
		if errors.Is(err, keystore.ErrKeyNotFound) {
			return fmt.Errorf("no key %s in %s", args[0], ks.Dir())
		}
		return err
	}
	ctx.Printf("Deleted %s\n", args[0])
	return nil
}

// readNewPassphrase prompts twice and insists both entries match.
func readNewPassphrase(ctx *command.Context) (*crypto.SecureString, error) {
	pass, err := ctx.ReadSecret("New bundle passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(pass)
	if len(pass) == 0 {
		return nil, fmt.Errorf("empty passphrase")
	}
	confirm, err := ctx.ReadSecret("Repeat passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(confirm)
	if !crypto.Equal(pass, confirm) {
		return nil, fmt.Errorf("passphrases do not match")
	}
	return crypto.NewSecureStringFromBytes(pass), nil
}

func readInput(ctx *command.Context, name string) ([]byte, error) {
	if name == "-" {
		in := ctx.Stdin
		if in == nil {
			in = os.Stdin
		}
		return io.ReadAll(in)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func writeOutput(ctx *command.Context, name string, data []byte) error {
	if name == "-" {
		_, err := ctx.Out().Write(data)
		return err
	}
	if dir := filepath.Dir(name); dir != "." {
		if err := fsutil.MkdirAll(dir); err != nil {
			return err
		}
	}
	return fsutil.WriteFileAtomic(name, data)
}
