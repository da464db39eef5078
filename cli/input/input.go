/*
Package input reads user input (passwords) for CLI commands.
*/
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdin is the input used for reading, os.Stdin if nil.
var Stdin io.Reader

// ReadPassword reads user password with prompt. Terminal input is not
// echoed, non-terminal input is read line by line.
func ReadPassword(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	if Stdin == nil {
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			pass, err := term.ReadPassword(fd)
			fmt.Fprintln(w)
			if err != nil {
				return "", fmt.Errorf("failed to read password: %w", err)
			}
			return string(pass), nil
		}
	}
	return readLine(Stdin)
}

func readLine(r io.Reader) (string, error) {
	if r == nil {
		r = os.Stdin
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
