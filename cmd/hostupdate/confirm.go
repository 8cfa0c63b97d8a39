package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// confirm puts stdin into raw mode and waits for a single keypress,
// prompting before the wire transaction that replaces a device's
// firmware begins. Any key other than 'y'/'Y' declines.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		// Non-interactive invocations (scripts, CI) proceed without a
		// prompt; there is no terminal to read a keypress from.
		return true
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not set raw mode: %v\r\n", err)
		return true
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	fmt.Printf("%s [y/N] ", prompt)
	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err != nil {
		fmt.Printf("\r\n")
		return false
	}
	fmt.Printf("\r\n")
	return buf[0] == 'y' || buf[0] == 'Y'
}
