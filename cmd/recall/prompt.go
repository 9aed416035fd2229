package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"recall/internal/recall"
)

// promptDialog asks for a save path on the terminal. An empty answer, or
// input that is not a terminal, cancels.
type promptDialog struct {
	in  io.Reader
	out io.Writer
	dir string
	tty bool
}

var _ recall.SaveDialog = (*promptDialog)(nil)

func newPromptDialog(dir string) *promptDialog {
	return &promptDialog{
		in:  os.Stdin,
		out: os.Stderr,
		dir: dir,
		tty: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

func (d *promptDialog) ChooseSavePath(suggestedName, extension string) (string, error) {
	if !d.tty {
		return "", nil
	}

	suggested := filepath.Join(d.dir, suggestedName)
	if extension != "" {
		suggested += "." + extension
	}
	fmt.Fprintf(d.out, "Save to [%s] (type - to cancel): ", suggested)

	line, err := bufio.NewReader(d.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading path: %w", err)
	}
	switch answer := strings.TrimSpace(line); answer {
	case "-":
		return "", nil
	case "":
		return suggested, nil
	default:
		return answer, nil
	}
}

// fixedDialog always answers with the same path.
type fixedDialog string

func (d fixedDialog) ChooseSavePath(string, string) (string, error) {
	return string(d), nil
}

// readPassphrase returns RECALL_PASSPHRASE when set, otherwise prompts
// without echo. confirm asks a second time and requires a match.
func readPassphrase(prompt string, confirm bool) (string, error) {
	if p := os.Getenv("RECALL_PASSPHRASE"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to read the passphrase from: set RECALL_PASSPHRASE")
	}

	fmt.Fprint(os.Stderr, prompt)
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if !confirm {
		return string(first), nil
	}

	fmt.Fprint(os.Stderr, "Repeat passphrase: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passphrases do not match")
	}
	return string(first), nil
}
