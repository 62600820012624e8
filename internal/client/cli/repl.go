package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// errExit ends the REPL.
var errExit = errors.New("exit")

// executor runs one parsed command line.
type executor interface {
	Execute(ctx context.Context, args []string) error
}

// runREPL reads lines from reader and hands each one to ex until EOF, ctx
// cancellation, or an exit command. Command errors are printed and the loop
// continues.
func runREPL(ctx context.Context, ex executor, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(strings.TrimSpace(fmt.Sprintf("ft %s >", statusFn())))

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return
		}
		eof := err != nil

		args, perr := splitLine(line)
		switch {
		case perr != nil:
			printlnFn("Error:", perr)
		case len(args) > 0:
			if err := ex.Execute(ctx, args); err != nil {
				if errors.Is(err, errExit) {
					printlnFn("Bye!")
					return
				}
				printlnFn("Error:", err)
			}
		}

		if eof {
			return
		}
	}
}

// splitLine splits a command line on whitespace. Double or single quotes
// group words, so `add contacts name="Ann Lee"` yields one name argument.
func splitLine(line string) ([]string, error) {
	var (
		args  []string
		cur   strings.Builder
		quote rune
		inArg bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
