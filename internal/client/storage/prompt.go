package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/atinyakov/auther/internal/models"
	"github.com/atinyakov/auther/internal/passkey"
	"github.com/atinyakov/auther/internal/vault"
)

var (
	// ErrSiteRequired is returned when a new credential has no site.
	ErrSiteRequired = errors.New("site is required")
	// ErrEmptySecret is returned when a new credential has no secret.
	ErrEmptySecret = errors.New("secret must not be empty")
)

// Prompter reads answers from the user. Secrets are read without echo when
// the input is a terminal.
type Prompter struct {
	in         *bufio.Scanner
	out        io.Writer
	readSecret func() (string, error)
}

// NewPrompter returns a Prompter on in and out, reading secrets without
// echo when in is a terminal.
func NewPrompter(in *os.File, out io.Writer) *Prompter {
	p := NewReaderPrompter(in, out)
	if fd := int(in.Fd()); term.IsTerminal(fd) {
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

// NewReaderPrompter returns a Prompter that reads secrets as plain lines.
func NewReaderPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Line prints label and returns the next line, trimmed. io.EOF means the
// input is exhausted.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// Secret prints label and reads a line without echo where possible.
// The answer is not trimmed.
func (p *Prompter) Secret(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if p.readSecret != nil {
		return p.readSecret()
	}
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.in.Text(), nil
}

// PromptForEntry asks for a site, optional email and username, the secret,
// and an optional passphrase. With a passphrase the secret is stored
// encrypted. Email and username each get their own context for the site.
func (p *Prompter) PromptForEntry() (*vault.Entry, error) {
	site, err := p.Line("Site: ")
	if err != nil {
		return nil, err
	}
	if site == "" {
		return nil, ErrSiteRequired
	}
	email, err := p.Line("Email (optional): ")
	if err != nil {
		return nil, err
	}
	username, err := p.Line("Username (optional): ")
	if err != nil {
		return nil, err
	}
	secret, err := p.Secret("Password: ")
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, ErrEmptySecret
	}
	passphrase, err := p.Secret("Encryption key (optional): ")
	if err != nil {
		return nil, err
	}

	var cred passkey.Credential = passkey.Plaintext(secret)
	if passphrase != "" {
		cred, err = cred.Encrypt(passphrase)
		if err != nil {
			return nil, err
		}
	}

	e := vault.NewEntry(cred)
	if email != "" {
		e.Add(models.Context{Site: site, Identity: models.Email(email)})
	}
	if username != "" {
		e.Add(models.Context{Site: site, Identity: models.Username(username)})
	}
	if len(e.Contexts) == 0 {
		e.Add(models.Context{Site: site})
	}
	return e, nil
}
