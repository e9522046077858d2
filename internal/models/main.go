// Package models defines the plain data shared between the vault, its
// on-disk form, and the snapshot server.
package models

// IdentityKind tells which kind of account name an Identity holds.
type IdentityKind uint8

const (
	// IdentityNone means the context names no account.
	IdentityNone IdentityKind = iota
	// IdentityEmail is an email address.
	IdentityEmail
	// IdentityUsername is a login name.
	IdentityUsername
)

// Identity is the optional account name used at a site.
type Identity struct {
	Kind  IdentityKind
	Value string
}

// Email returns an email identity. An empty address is no identity.
func Email(addr string) Identity { return identity(IdentityEmail, addr) }

// Username returns a username identity. An empty name is no identity.
func Username(name string) Identity { return identity(IdentityUsername, name) }

func identity(kind IdentityKind, value string) Identity {
	if value == "" {
		return Identity{}
	}
	return Identity{Kind: kind, Value: value}
}

// Context binds a credential to a site and, optionally, an identity.
// It is also used as a lookup query.
type Context struct {
	// Site is where the credential is used. Required.
	Site string
	// Identity is the account at Site, if any.
	Identity Identity
}

// Vault is the serialized form of a credential store.
type Vault struct {
	// Version changes on every local modification; the snapshot server uses
	// it to order uploads.
	Version int64         `toml:"version" json:"version"`
	Entries []EntryRecord `toml:"entries" json:"entries"`
}

// EntryRecord is one credential with its contexts.
type EntryRecord struct {
	// Kind is "digest", "plaintext" or "ciphertext".
	Kind string `toml:"kind" json:"kind"`
	// Secret is the digest hex, the plaintext, or base64 ciphertext.
	Secret   string          `toml:"secret" json:"secret"`
	Contexts []ContextRecord `toml:"contexts" json:"contexts"`
}

// ContextRecord is the serialized Context. At most one of Email and
// Username is set.
type ContextRecord struct {
	Site     string `toml:"site" json:"site"`
	Email    string `toml:"email,omitempty" json:"email,omitempty"`
	Username string `toml:"username,omitempty" json:"username,omitempty"`
}

// Snapshot is a sealed vault file uploaded to the server.
type Snapshot struct {
	// ID is the unique identifier for the snapshot.
	ID string `json:"id,omitempty"`
	// Version is the client's vault version.
	Version int64 `json:"version"`
	// Data is the encrypted vault file, opaque to the server.
	Data []byte `json:"data"`
}

// SyncResult is the server's answer to an upload.
type SyncResult struct {
	// Accepted reports whether the upload became the latest snapshot.
	Accepted bool `json:"accepted"`
	// Version is the latest stored version.
	Version int64 `json:"version"`
	// Data holds the latest stored snapshot when the upload was rejected.
	Data []byte `json:"data,omitempty"`
}

// Record returns the serialized form of c. An identity with an empty value
// is written as no identity.
func (c Context) Record() ContextRecord {
	r := ContextRecord{Site: c.Site}
	switch c.Identity.Kind {
	case IdentityEmail:
		r.Email = c.Identity.Value
	case IdentityUsername:
		r.Username = c.Identity.Value
	}
	return r
}

// Context parses r. It reports false when both identities are set.
func (r ContextRecord) Context() (Context, bool) {
	c := Context{Site: r.Site}
	switch {
	case r.Email != "" && r.Username != "":
		return Context{}, false
	case r.Email != "":
		c.Identity = Email(r.Email)
	case r.Username != "":
		c.Identity = Username(r.Username)
	}
	return c, true
}
