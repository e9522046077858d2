package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/auther/internal/client/storage"
	"github.com/atinyakov/auther/internal/models"
	"github.com/atinyakov/auther/internal/passkey"
)

const helpText = `Available commands:
  add                 store a new credential
  list                show stored entries and their contexts
  get <query>         reveal a credential
  copy <query>        copy a credential to the clipboard
  verify <query>      check a secret against a credential
  digest <query>      replace a credential by its digest (irreversible)
  remove <query>      drop a context from every entry
  save | load         write or re-read the vault file
  sync | pull         push to or fetch from the server
  exit
A query is: site [email:<addr>|user:<name>]`

// shell is the interactive command loop over one vault file.
type shell struct {
	p       *storage.Prompter
	out     io.Writer
	ls      *storage.LocalStorage
	fileKey string

	// client is nil when working offline.
	client  *http.Client
	baseURL string
	log     *zap.Logger

	// clip writes to the system clipboard.
	clip func(string) error
}

// run reads commands until exit or end of input.
func (s *shell) run(ctx context.Context) error {
	for {
		line, err := s.p.Line("auther> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if s.dispatch(ctx, args) {
			return nil
		}
	}
}

// dispatch runs one command and reports whether the shell should stop.
func (s *shell) dispatch(ctx context.Context, args []string) bool {
	var err error
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "add":
		err = s.add()
	case "list":
		s.ls.List(s.out)
	case "get":
		err = s.withQuery(args, s.reveal)
	case "copy":
		err = s.withQuery(args, s.copy)
	case "verify":
		err = s.withQuery(args, s.verify)
	case "digest":
		err = s.withQuery(args, s.digest)
	case "remove":
		err = s.withQuery(args, s.remove)
	case "save":
		if err = s.ls.Save(s.fileKey); err == nil {
			fmt.Fprintln(s.out, "Saved", s.ls.Path)
		}
	case "load":
		if err = s.ls.Load(s.fileKey); err == nil {
			fmt.Fprintf(s.out, "Loaded %d entries\n", s.ls.Len())
		}
	case "sync":
		err = s.sync(ctx)
	case "pull":
		err = s.pull(ctx)
	case "exit", "quit":
		fmt.Fprintln(s.out, "Bye")
		return true
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	if err != nil {
		s.log.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
		fmt.Fprintln(s.out, "Error:", err)
	}
	return false
}

func (s *shell) withQuery(args []string, fn func(models.Context) error) error {
	q, err := storage.ParseQuery(args[1:])
	if err != nil {
		return fmt.Errorf("usage: %s site [email:<addr>|user:<name>]: %w", args[0], err)
	}
	return fn(q)
}

func (s *shell) save() error {
	return s.ls.Save(s.fileKey)
}

func (s *shell) add() error {
	e, err := s.p.PromptForEntry()
	if err != nil {
		return err
	}
	if s.ls.Add(e) {
		fmt.Fprintln(s.out, "Credential already stored, contexts merged")
	} else {
		fmt.Fprintln(s.out, "Credential added")
	}
	return s.save()
}

// keyFor asks for the passphrase when the entry matching q is encrypted.
// An empty answer is no key, matching how add treats it.
func (s *shell) keyFor(q models.Context) (passkey.Passphrase, error) {
	e, ok := s.ls.Lookup(q)
	if !ok {
		return passkey.NoKey, storage.ErrNotFound
	}
	if e.Credential.Kind() != passkey.KindCiphertext {
		return passkey.NoKey, nil
	}
	k, err := s.p.Secret("Encryption key: ")
	if err != nil || k == "" {
		return passkey.NoKey, err
	}
	return passkey.Key(k), nil
}

func (s *shell) secret(q models.Context) (string, error) {
	key, err := s.keyFor(q)
	if err != nil {
		return "", err
	}
	return s.ls.Reveal(q, key)
}

func (s *shell) reveal(q models.Context) error {
	secret, err := s.secret(q)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, secret)
	return nil
}

func (s *shell) copy(q models.Context) error {
	secret, err := s.secret(q)
	if err != nil {
		return err
	}
	if err := s.clip(secret); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	fmt.Fprintln(s.out, "Copied to clipboard")
	return nil
}

func (s *shell) verify(q models.Context) error {
	key, err := s.keyFor(q)
	if err != nil {
		return err
	}
	candidate, err := s.p.Secret("Secret to check: ")
	if err != nil {
		return err
	}
	ok, err := s.ls.Verify(q, candidate, key)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(s.out, "Match")
	} else {
		fmt.Fprintln(s.out, "No match")
	}
	return nil
}

func (s *shell) digest(q models.Context) error {
	key, err := s.keyFor(q)
	if err != nil {
		return err
	}
	answer, err := s.p.Line("The secret will no longer be recoverable. Continue? [y/N] ")
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") {
		fmt.Fprintln(s.out, "Cancelled")
		return nil
	}
	if err := s.ls.Digest(q, key); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Credential replaced by its digest")
	return s.save()
}

func (s *shell) remove(q models.Context) error {
	n := s.ls.RemoveContext(q)
	if n == 0 {
		return storage.ErrNotFound
	}
	fmt.Fprintf(s.out, "Removed %d context(s)\n", n)
	return s.save()
}

func (s *shell) sync(ctx context.Context) error {
	if s.client == nil {
		return errOffline
	}
	res, err := storage.SyncWithServer(ctx, s.client, s.baseURL, s.ls, s.fileKey)
	if err != nil {
		return err
	}
	if res.Accepted {
		fmt.Fprintf(s.out, "Server accepted version %d\n", res.Version)
	} else {
		fmt.Fprintf(s.out, "Server kept version %d, local vault is at %d\n", res.Version, s.ls.CurrentVersion())
	}
	return nil
}

func (s *shell) pull(ctx context.Context) error {
	if s.client == nil {
		return errOffline
	}
	changed, err := storage.Pull(ctx, s.client, s.baseURL, s.ls, s.fileKey)
	if err != nil {
		return err
	}
	if changed {
		fmt.Fprintf(s.out, "Pulled version %d\n", s.ls.CurrentVersion())
	} else {
		fmt.Fprintln(s.out, "Already up to date")
	}
	return nil
}

var errOffline = errors.New("no server configured, start with -url")
