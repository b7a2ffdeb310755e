// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package version reports the build of the seahorse binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/seahorse-keys/seahorse/internal/version.Version=1.0.0".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// String is the --version text: version, then commit and build time when
// known, then platform. A dev build without ldflags falls back to the VCS
// revision recorded by the go command.
func String() string {
	return format(Version, commit(), BuildTime)
}

func format(version, commit, built string) string {
	var extra []string
	if commit != "" {
		extra = append(extra, "commit "+commit)
	}
	if built != "" {
		extra = append(extra, "built "+built)
	}
	extra = append(extra, runtime.GOOS+"/"+runtime.GOARCH)
	return fmt.Sprintf("%s (%s)", version, strings.Join(extra, ", "))
}

func commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			return s.Value[:12]
		}
	}
	return ""
}
