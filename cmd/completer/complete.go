package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/urfave/cli/v3"

	"github.com/rlch/completer"
	"github.com/rlch/completer/textbuf"
)

// ErrNoInput is returned when complete has nothing to complete.
var ErrNoInput = errors.New("no input text (use --text, --file or stdin)")

func completeCommand() *cli.Command {
	return &cli.Command{
		Name:  "complete",
		Usage: "Print completions for a text at a cursor offset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "text",
				Usage: "text to complete (default: --file contents or stdin)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "document path; used to match a kernel session and as the LSP document",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "cursor offset in characters (default: end of text)",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output the reply as JSON",
			},
		},
		Action: runComplete,
	}
}

func runComplete(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	text, err := readInput(cmd.String("text"), path)
	if err != nil {
		return err
	}

	offset := cmd.Int("offset")
	if n := utf8.RuneCountInString(text); offset < 0 || offset > n {
		offset = n
	}

	if path == "" {
		path = "untitled"
	}

	eng, err := newEngine(ctx, cmd, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close(ctx) }()

	buf := textbuf.New(text)
	buf.SetCursor(completer.PositionOf(text, offset))

	surface, h := eng.open("complete", path, buf)
	defer surface.Dispose()

	h.Invoke()
	eng.wait()

	state := displayOf(h).State()
	reply := state.Reply()
	reply.Items = state.Items()
	for i, item := range reply.Items {
		reply.Items[i] = eng.resolve(ctx, item)
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}

	for _, item := range reply.Items {
		if item.Type != "" {
			fmt.Printf("%s\t%s\n", item.Label, item.Type)
		} else {
			fmt.Println(item.Label)
		}
	}

	return nil
}

func readInput(text, path string) (string, error) {
	if text != "" {
		return text, nil
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: file path from user input is expected
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		return "", ErrNoInput
	}

	return string(data), nil
}
