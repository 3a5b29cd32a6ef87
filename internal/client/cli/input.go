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

var isTerminal = term.IsTerminal

var ErrInvalidPIN = errors.New("PIN must be exactly 4 digits")

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

// GetPassword prints prompt to w and reads a secret from the terminal fd
// without echo. A newline is printed after the read to keep the UI tidy.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(w io.Writer, prompt string, fd int) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// Prompter asks the user for input. Secrets are read without echo when the
// input is a terminal and as plain lines otherwise (pipes, tests).
type Prompter struct {
	reader   *bufio.Reader
	w        io.Writer
	fd       int
	terminal bool
}

func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	p := &Prompter{reader: bufio.NewReader(r), w: w, fd: -1}
	if f, ok := r.(*os.File); ok && isTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.terminal = true
	}
	return p
}

func (p *Prompter) Text(prompt string) (string, error) {
	return GetSimpleText(p.reader, prompt, p.w)
}

// TextOr returns value when it is set and prompts otherwise.
func (p *Prompter) TextOr(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.Text(prompt)
}

func (p *Prompter) Secret(prompt string) (string, error) {
	if !p.terminal {
		return p.Text(prompt)
	}
	b, err := GetPassword(p.w, prompt, p.fd)
	if err != nil {
		return "", err
	}
	defer wipe(b)
	return strings.TrimSpace(string(b)), nil
}

// PIN reads a four digit PIN.
func (p *Prompter) PIN(prompt string) (string, error) {
	pin, err := p.Secret(prompt)
	if err != nil {
		return "", err
	}
	if err := validatePIN(pin); err != nil {
		return "", err
	}
	return pin, nil
}

// NewPIN reads a PIN twice and fails when the entries differ.
func (p *Prompter) NewPIN() (string, error) {
	pin, err := p.PIN("Choose a 4 digit PIN")
	if err != nil {
		return "", err
	}
	again, err := p.Secret("Repeat the PIN")
	if err != nil {
		return "", err
	}
	if pin != again {
		return "", errors.New("PINs do not match")
	}
	return pin, nil
}

// Confirm asks a yes/no question; anything but y or yes is a no.
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.Text(question + " [y/N]")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func validatePIN(pin string) error {
	if len(pin) != 4 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
