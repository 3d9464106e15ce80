package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetTextWithDefault is GetSimpleText with the current value shown in
// brackets. An empty answer returns def.
func GetTextWithDefault(reader *bufio.Reader, prompt, def string, w io.Writer) (string, error) {
	got, err := GetSimpleText(reader, fmt.Sprintf("%s [%s]", prompt, def), w)
	if err != nil {
		return "", err
	}
	if got == "" {
		return def, nil
	}
	return got, nil
}

// GetPassword prints prompt to w and reads a password from the user's
// terminal without echo. A newline is printed after the read to keep the UI
// tidy.
func GetPassword(prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// GetNewPassword asks for a password twice. With allowEmpty an empty first
// answer is returned as is, without asking for confirmation.
func GetNewPassword(w io.Writer, allowEmpty bool) (string, error) {
	prompt := "Password"
	if allowEmpty {
		prompt = "New password (leave empty to keep)"
	}

	pw, err := GetPassword(prompt, w)
	if err != nil {
		return "", err
	}
	if pw == "" {
		if allowEmpty {
			return "", nil
		}
		return "", errEmptyPassword
	}

	again, err := GetPassword("Repeat password", w)
	if err != nil {
		return "", err
	}
	if again != pw {
		return "", errPasswordMismatch
	}
	return pw, nil
}

// Confirm asks a yes/no question; only "y" or "yes" count as yes.
func Confirm(reader *bufio.Reader, prompt string, w io.Writer) (bool, error) {
	answer, err := GetSimpleText(reader, prompt+" (y/N)", w)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
