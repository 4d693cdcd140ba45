package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rlch/completer/handler"
	"github.com/rlch/completer/model"
	"github.com/rlch/completer/textbuf"
)

func replCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Line oriented completion session",
		Description: `Each input line is typed into the buffer at the cursor and completion
is invoked. Commands:

  :N        insert candidate N
  :undo     undo the last edit
  :show     print the buffer
  :clear    empty the buffer
  :q        quit`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "document path used to match a kernel session",
				Value:   "repl",
			},
		},
		Action: runREPL,
	}
}

func runREPL(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	if path == "" {
		path = "repl"
	}

	eng, err := newEngine(ctx, cmd, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close(ctx) }()

	buf := textbuf.New("")
	surface, h := eng.open("repl", path, buf)
	defer surface.Dispose()

	r := &repl{
		out:     os.Stdout,
		eng:     eng,
		buf:     buf,
		handler: h,
		display: displayOf(h),
	}

	return r.run(os.Stdin)
}

type repl struct {
	out     io.Writer
	eng     *engine
	buf     *textbuf.Buffer
	handler *handler.Handler
	display *model.Completer
}

func (r *repl) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(r.out, "> ")

	for scanner.Scan() {
		if !r.line(scanner.Text()) {
			return nil
		}
		fmt.Fprint(r.out, "> ")
	}

	return scanner.Err()
}

// line handles one input line. It returns false to quit.
func (r *repl) line(line string) bool {
	switch {
	case line == ":q":
		return false

	case line == ":undo":
		r.buf.Undo()
		r.show()

	case line == ":show":
		r.show()

	case line == ":clear":
		r.buf.UpdateSource(0, len(r.buf.Text()), "")

	case strings.HasPrefix(line, ":"):
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			fmt.Fprintf(r.out, "unknown command %q\n", line)
			return true
		}
		r.pick(n)

	default:
		// A hidden display has nothing left to narrow; start over.
		if r.display.IsHidden() {
			r.display.State().Reset(true)
		}
		r.buf.Insert(line)
		r.handler.Invoke()
		r.eng.wait()
		r.list()
	}

	return true
}

func (r *repl) pick(n int) {
	items := r.display.Items()
	if n < 1 || n > len(items) {
		fmt.Fprintf(r.out, "no candidate %d\n", n)
		return
	}

	r.display.Cycle(n - 1 - r.display.Active())
	r.handler.SelectActive()
	r.show()
}

func (r *repl) list() {
	items := r.display.Items()
	if len(items) == 0 {
		fmt.Fprintln(r.out, "(no completions)")
		return
	}

	for i, item := range items {
		if item.Type != "" {
			fmt.Fprintf(r.out, "%3d  %s  (%s)\n", i+1, item.Label, item.Type)
		} else {
			fmt.Fprintf(r.out, "%3d  %s\n", i+1, item.Label)
		}
	}
}

func (r *repl) show() {
	fmt.Fprintln(r.out, r.buf.Text())
}
