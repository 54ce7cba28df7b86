// Package console implements the operator side of the interactive
// protocols: free-text questions and yes/no confirmations.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/x/term"
)

// ErrInterrupted is returned when the operator cancels a prompt
// (interrupt signal or end of input).
var ErrInterrupted = errors.New("interrupted by operator")

// Operator is a request/response exchange with the person running the session.
type Operator interface {
	// Ask shows question and returns the trimmed answer.
	Ask(ctx context.Context, question string) (string, error)
	// Say shows an informational line.
	Say(format string, args ...any)
}

// Terminal is an Operator reading answers line by line from in.
// Input is read on a separate goroutine so that Ask honours cancellation.
type Terminal struct {
	in    io.Reader
	out   io.Writer
	once  sync.Once
	lines chan string
}

// NewTerminal returns a Terminal over in and out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out, lines: make(chan string)}
}

func (t *Terminal) start() {
	go func() {
		sc := bufio.NewScanner(t.in)
		for sc.Scan() {
			t.lines <- sc.Text()
		}
		close(t.lines)
	}()
}

func (t *Terminal) Ask(ctx context.Context, question string) (string, error) {
	t.once.Do(t.start)
	fmt.Fprint(t.out, question, " ")
	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return "", ErrInterrupted
	case line, ok := <-t.lines:
		if !ok {
			fmt.Fprintln(t.out)
			return "", ErrInterrupted
		}
		return strings.TrimSpace(line), nil
	}
}

func (t *Terminal) Say(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}

// Confirm asks question until the operator answers yes or no.
func Confirm(ctx context.Context, op Operator, question string) (bool, error) {
	for {
		answer, err := op.Ask(ctx, question+" (y/n)?")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			op.Say("Please choose yes or no")
		}
	}
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(f.Fd())
}
