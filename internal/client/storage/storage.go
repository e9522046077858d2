// Package storage is the client side of auther: it keeps the credential
// store in a TOML file, optionally sealed with a file key, prompts the user
// for new credentials, and syncs the sealed file with the snapshot server.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/atinyakov/auther/internal/models"
	"github.com/atinyakov/auther/internal/passkey"
	"github.com/atinyakov/auther/internal/vault"
)

// DefaultFileName is the vault file looked up in the working directory,
// then in the home directory.
const DefaultFileName = "auther.toml"

var (
	// ErrNotFound is returned when no entry matches a query.
	ErrNotFound = errors.New("no matching credential")
	// ErrDigestHidden is returned when revealing a digest.
	ErrDigestHidden = errors.New("credential is hashed and cannot be displayed")
)

// ResolvePath returns where the vault file lives. A name with a directory
// part is used as given. A bare name is used if it exists in the working
// directory, otherwise it is placed in the home directory.
func ResolvePath(name string) (string, error) {
	if name == "" {
		name = DefaultFileName
	}
	if filepath.Base(name) != name {
		return name, nil
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, name), nil
}

// LocalStorage is the vault file and its in-memory store. All methods are
// safe for concurrent use.
type LocalStorage struct {
	// Path is the vault file location.
	Path string
	// Version changes on every modification.
	Version int64

	mu    sync.Mutex
	store *vault.Store
}

// NewLocalStorage returns an empty storage backed by path.
func NewLocalStorage(path string) *LocalStorage {
	return &LocalStorage{Path: path, store: vault.New()}
}

// Load reads the vault file. A missing file leaves an empty store.
// fileKey must be the key the file was saved with, or empty for plain TOML.
func (ls *LocalStorage) Load(fileKey string) error {
	data, err := os.ReadFile(ls.Path)
	if err != nil {
		if os.IsNotExist(err) {
			ls.mu.Lock()
			ls.store = vault.New()
			ls.Version = 0
			ls.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read vault file: %w", err)
	}
	return ls.Decode(data, fileKey)
}

// Save writes the vault file, sealed when fileKey is not empty.
func (ls *LocalStorage) Save(fileKey string) error {
	data, err := ls.Encode(fileKey)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(ls.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create vault directory: %w", err)
		}
	}
	if err := os.WriteFile(ls.Path, data, 0o600); err != nil {
		return fmt.Errorf("write vault file: %w", err)
	}
	return nil
}

// Encode returns the vault file contents.
func (ls *LocalStorage) Encode(fileKey string) ([]byte, error) {
	data, _, err := ls.encode(fileKey)
	return data, err
}

// encode also returns the version written into the file.
func (ls *LocalStorage) encode(fileKey string) ([]byte, int64, error) {
	ls.mu.Lock()
	doc := models.Vault{Version: ls.Version, Entries: ls.store.Records()}
	ls.mu.Unlock()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, 0, fmt.Errorf("encode vault: %w", err)
	}
	if fileKey == "" {
		return buf.Bytes(), doc.Version, nil
	}
	sealed, err := Seal(buf.Bytes(), fileKey)
	return sealed, doc.Version, err
}

// Decode replaces the store with the contents of a vault file.
func (ls *LocalStorage) Decode(data []byte, fileKey string) error {
	store, version, err := parse(data, fileKey)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.store = store
	ls.Version = version
	return nil
}

// ReplaceIfNewer replaces the store with the contents of a vault file only
// if the file's version is higher than the current one, then saves it. The
// comparison and the swap happen under one lock, so changes made while the
// file was being fetched are never discarded by an older file.
func (ls *LocalStorage) ReplaceIfNewer(data []byte, fileKey string) (bool, error) {
	store, version, err := parse(data, fileKey)
	if err != nil {
		return false, err
	}

	ls.mu.Lock()
	if version <= ls.Version {
		ls.mu.Unlock()
		return false, nil
	}
	ls.store = store
	ls.Version = version
	ls.mu.Unlock()

	return true, ls.Save(fileKey)
}

func parse(data []byte, fileKey string) (*vault.Store, int64, error) {
	if fileKey != "" {
		plain, err := Open(data, fileKey)
		if err != nil {
			return nil, 0, err
		}
		data = plain
	}

	var doc models.Vault
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("parse vault file: %w", err)
	}
	store, err := vault.FromRecords(doc.Entries)
	if err != nil {
		return nil, 0, fmt.Errorf("load vault: %w", err)
	}
	return store, doc.Version, nil
}

// touch must be called with mu held.
func (ls *LocalStorage) touch() {
	ls.Version = max(time.Now().Unix(), ls.Version+1)
}

// Add inserts e and reports whether it was merged into an existing entry.
func (ls *LocalStorage) Add(e *vault.Entry) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	_, merged := ls.store.Insert(e)
	ls.touch()
	return merged
}

// Lookup returns the first entry matching query.
func (ls *LocalStorage) Lookup(query models.Context) (*vault.Entry, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.store.Lookup(query)
}

// CurrentVersion returns Version under the lock.
func (ls *LocalStorage) CurrentVersion() int64 {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.Version
}

// Len returns the number of entries.
func (ls *LocalStorage) Len() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.store.Len()
}

// RemoveContext drops ctx from every entry.
func (ls *LocalStorage) RemoveContext(ctx models.Context) int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	n := ls.store.RemoveContext(ctx)
	if n > 0 {
		ls.touch()
	}
	return n
}

// Reveal returns the secret of the entry matching query. A Ciphertext needs
// its passphrase, which may be empty; a Digest cannot be revealed.
func (ls *LocalStorage) Reveal(query models.Context, key passkey.Passphrase) (string, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	e, ok := ls.store.Lookup(query)
	if !ok {
		return "", ErrNotFound
	}
	switch c := e.Credential.(type) {
	case passkey.Digest:
		return "", ErrDigestHidden
	case passkey.Plaintext:
		return string(c), nil
	case passkey.Ciphertext:
		passphrase, ok := key.Get()
		if !ok {
			return "", passkey.ErrMissingPassphrase
		}
		plain, err := c.Decrypt(passphrase)
		if err != nil {
			return "", err
		}
		return string(plain.(passkey.Plaintext)), nil
	default:
		return "", fmt.Errorf("unsupported credential %T", c)
	}
}

// Verify reports whether candidate is the secret of the entry matching query.
func (ls *LocalStorage) Verify(query models.Context, candidate string, key passkey.Passphrase) (bool, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	e, ok := ls.store.Lookup(query)
	if !ok {
		return false, ErrNotFound
	}
	return e.Check(passkey.Plaintext(candidate), key), nil
}

// Digest replaces the credential of the entry matching query with its
// digest. This cannot be undone.
func (ls *LocalStorage) Digest(query models.Context, key passkey.Passphrase) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	e, ok := ls.store.Lookup(query)
	if !ok {
		return ErrNotFound
	}
	d, err := e.Credential.Digest(key)
	if err != nil {
		return err
	}
	e.Credential = d
	ls.touch()
	return nil
}

// List writes every entry and its contexts to w. Secrets are not shown.
func (ls *LocalStorage) List(w io.Writer) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	fmt.Fprintln(w, "Stored credentials:")
	for i, e := range ls.store.Entries() {
		fmt.Fprintf(w, "#%d [%s]\n", i+1, e.Credential.Kind())
		for _, c := range e.Contexts {
			fmt.Fprintf(w, "  %s\n", FormatContext(c))
		}
		fmt.Fprintln(w, "---")
	}
}

// FormatContext renders c the way ParseQuery reads it.
func FormatContext(c models.Context) string {
	switch c.Identity.Kind {
	case models.IdentityEmail:
		return c.Site + " email:" + c.Identity.Value
	case models.IdentityUsername:
		return c.Site + " user:" + c.Identity.Value
	default:
		return c.Site
	}
}

// ParseQuery reads "site [email:<addr>|user:<name>]" from shell arguments.
func ParseQuery(args []string) (models.Context, error) {
	if len(args) == 0 || args[0] == "" {
		return models.Context{}, errors.New("site is required")
	}
	q := models.Context{Site: args[0]}
	switch len(args) {
	case 1:
		return q, nil
	case 2:
	default:
		return models.Context{}, fmt.Errorf("too many arguments: %q", strings.Join(args[2:], " "))
	}

	kind, value, ok := strings.Cut(args[1], ":")
	if !ok || value == "" {
		return models.Context{}, fmt.Errorf("identity must be email:<addr> or user:<name>, got %q", args[1])
	}
	switch kind {
	case "email":
		q.Identity = models.Email(value)
	case "user":
		q.Identity = models.Username(value)
	default:
		return models.Context{}, fmt.Errorf("unknown identity kind %q", kind)
	}
	return q, nil
}
