package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/rlch/completer/textbuf"
)

// withEngine runs fn with an engine configured from config, for a document
// in a fresh directory holding files.
func withEngine(t *testing.T, config string, files map[string]string, fn func(ctx context.Context, eng *engine, path string)) {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".completer.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(config), 0o600))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	path := filepath.Join(dir, "main.py")

	app := newApp()
	app.Commands = nil
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		eng, err := newEngine(ctx, cmd, path, nil)
		if err != nil {
			return err
		}
		defer func() { _ = eng.Close(ctx) }()

		fn(ctx, eng, path)
		return nil
	}

	require.NoError(t, app.Run(context.Background(), []string{"completer", "--config", cfgPath}))
}

func TestREPL_Session(t *testing.T) {
	t.Parallel()

	config := `
providers:
  - id: local
    sources: [context]
`
	withEngine(t, config, nil, func(_ context.Context, eng *engine, path string) {
		buf := textbuf.New("")
		surface, h := eng.open("repl", path, buf)
		defer surface.Dispose()

		var out bytes.Buffer
		r := &repl{out: &out, eng: eng, buf: buf, handler: h, display: displayOf(h)}
		require.NoError(t, r.run(strings.NewReader("printf(1); private = pri\n:2\n:undo\n:9\n:bogus\n:q\n")))

		got := out.String()
		assert.Contains(t, got, "  1  printf  (text)\n  2  private  (text)\n")
		assert.Contains(t, got, "printf(1); private = private\n")
		assert.Contains(t, got, "printf(1); private = pri\n")
		assert.Contains(t, got, "no candidate 9")
		assert.Contains(t, got, `unknown command ":bogus"`)
	})
}

func TestREPL_RestartsAfterEmptyList(t *testing.T) {
	t.Parallel()

	config := `
providers:
  - id: local
    sources: [context]
`
	withEngine(t, config, nil, func(_ context.Context, eng *engine, path string) {
		buf := textbuf.New("")
		surface, h := eng.open("repl", path, buf)
		defer surface.Dispose()

		var out bytes.Buffer
		r := &repl{out: &out, eng: eng, buf: buf, handler: h, display: displayOf(h)}
		require.NoError(t, r.run(strings.NewReader("prism = 1; x = \npr\n:q\n")))

		got := out.String()
		assert.Contains(t, got, "(no completions)")
		assert.Contains(t, got, "  1  prism  (text)")
	})
}

func TestEngine_Workspace(t *testing.T) {
	t.Parallel()

	config := `
providers:
  - id: workspace
    sources: [workspace]
workspace:
  extensions: [py]
max_items: 1
`
	files := map[string]string{
		"lib.py":   "def printer(): pass\ndef prism(): pass\n",
		"notes.md": "primary\n",
	}
	withEngine(t, config, files, func(_ context.Context, eng *engine, path string) {
		buf := textbuf.New("x = pri")
		surface, h := eng.open("file", path, buf)
		defer surface.Dispose()

		h.Invoke()
		eng.wait()

		items := displayOf(h).Items()
		require.Len(t, items, 1)
		assert.Equal(t, "printer", items[0].Label)
		assert.Equal(t, "workspace", items[0].Type)
	})
}

func TestReadInput(t *testing.T) {
	t.Parallel()

	text, err := readInput("abc", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "abc", text)

	path := filepath.Join(t.TempDir(), "doc.py")
	require.NoError(t, os.WriteFile(path, []byte("import os"), 0o600))
	text, err = readInput("", path)
	require.NoError(t, err)
	assert.Equal(t, "import os", text)

	_, err = readInput("", filepath.Join(t.TempDir(), "missing.py"))
	require.Error(t, err)
}
