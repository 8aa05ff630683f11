package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptySecret is returned when the user enters nothing
var ErrEmptySecret = errors.New("no value entered")

// Prompter asks the user for secrets
type Prompter interface {
	Secret(label string) (string, error)
}

// Terminal reads secrets from In, without echo when In is a terminal
type Terminal struct {
	In  *os.File
	Out io.Writer
}

// New returns a prompter on stdin that writes prompts to stderr
func New() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

// Secret prompts for label and reads one value. Piped input is read as a
// single line without prompting.
func (t *Terminal) Secret(label string) (string, error) {
	fd := int(t.In.Fd())
	if !term.IsTerminal(fd) {
		return readLine(t.In)
	}

	fmt.Fprintf(t.Out, "%s: ", label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(t.Out)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	return string(secret), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading secret: %w", err)
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", ErrEmptySecret
	}
	return line, nil
}
