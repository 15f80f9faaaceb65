package main

import (
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}

	origVersion, origCommit := Version, GitCommit
	Version, GitCommit = "1.2.3-test", "abc123"
	defer func() { Version, GitCommit = origVersion, origCommit }()

	cmd, buf := newTestCmd()
	versionCmd.Run(cmd, nil)

	for _, want := range []string{"Auditor 1.2.3-test", "Git Commit: abc123", "Go Version: " + runtime.Version()} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("version output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestVersionInfo(t *testing.T) {
	info := versionInfo()
	if info.Version != Version {
		t.Errorf("versionInfo().Version = %q, want %q", info.Version, Version)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"run": false, "audit": false, "policy": false, "verdicts": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q is not registered", name)
		}
	}
}
