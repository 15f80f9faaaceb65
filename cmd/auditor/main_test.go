package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// writeConfig writes a config that loads grid from testdata and stores
// verdicts in a fresh SQLite database. verdictsExtra is inserted into the
// verdicts block and must be indented by two spaces.
func writeConfig(t *testing.T, grid, verdictsExtra string) string {
	t.Helper()
	dir := t.TempDir()
	gridPath, err := filepath.Abs(filepath.Join("testdata", grid))
	if err != nil {
		t.Fatal(err)
	}

	data := fmt.Sprintf(`policy:
  source: file
  file:
    path: %q
verdicts:
  backend: sqlite
  sqlite:
    driver: sqlite
    path: %q
%stelemetry:
  logging:
    level: error
`, gridPath, filepath.Join(dir, "verdicts.db"), verdictsExtra)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// useConfig points the global --config flag at path for one test.
func useConfig(t *testing.T, path string) {
	t.Helper()
	orig := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = orig })
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetIn(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	return cmd, buf
}
