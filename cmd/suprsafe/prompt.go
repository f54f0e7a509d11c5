package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// readPassword prompts on stderr and reads a secret without echo.
// Falls back to /dev/tty when stdin is piped.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	var secret []byte
	var err error

	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err = term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
	} else {
		tty, ttyErr := os.Open("/dev/tty")
		if ttyErr != nil {
			return "", fmt.Errorf("cannot read secret: stdin is piped and /dev/tty is not available")
		}
		defer tty.Close()

		secret, err = term.ReadPassword(int(tty.Fd()))
		fmt.Fprintln(os.Stderr)
	}

	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimRight(string(secret), "\r\n"), nil
}

// readPasswordConfirm prompts twice and requires both entries to match.
func readPasswordConfirm(prompt, confirmPrompt string) (string, error) {
	first, err := readPassword(prompt)
	if err != nil {
		return "", err
	}
	second, err := readPassword(confirmPrompt)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("entries do not match")
	}
	return first, nil
}
