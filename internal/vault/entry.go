// Package vault holds credentials in memory, indexed by the sites and
// identities they are used with.
//
// Nothing here is safe for concurrent use; callers serialize access.
package vault

import (
	"github.com/atinyakov/auther/internal/models"
	"github.com/atinyakov/auther/internal/passkey"
)

// Entry is one credential and the contexts it is used in.
type Entry struct {
	Credential passkey.Credential
	Contexts   []models.Context
}

// NewEntry returns an entry for c with the given contexts.
func NewEntry(c passkey.Credential, contexts ...models.Context) *Entry {
	return &Entry{Credential: c, Contexts: contexts}
}

// Add appends ctx.
func (e *Entry) Add(ctx models.Context) {
	e.Contexts = append(e.Contexts, ctx)
}

// Remove drops every context equal to ctx and returns how many were dropped.
func (e *Entry) Remove(ctx models.Context) int {
	kept := e.Contexts[:0]
	for _, c := range e.Contexts {
		if c != ctx {
			kept = append(kept, c)
		}
	}
	removed := len(e.Contexts) - len(kept)
	e.Contexts = kept
	return removed
}

// Check reports whether the entry's credential matches other.
func (e *Entry) Check(other passkey.Credential, key passkey.Passphrase) bool {
	if e.Credential == nil {
		return false
	}
	return e.Credential.Check(other, key)
}

// Matches reports whether the entry's contexts satisfy query. The site and
// the identity are looked up independently across all contexts; they need
// not appear on the same record.
func (e *Entry) Matches(query models.Context) bool {
	siteFound := false
	identityFound := query.Identity.Kind == models.IdentityNone
	for _, c := range e.Contexts {
		if c.Site == query.Site {
			siteFound = true
		}
		if !identityFound && c.Identity == query.Identity {
			identityFound = true
		}
	}
	return siteFound && identityFound
}

// Sites returns the site of every context, in order.
func (e *Entry) Sites() []string {
	out := make([]string, 0, len(e.Contexts))
	for _, c := range e.Contexts {
		out = append(out, c.Site)
	}
	return out
}

// Emails returns the email identities, in order.
func (e *Entry) Emails() []string { return e.identities(models.IdentityEmail) }

// Usernames returns the username identities, in order.
func (e *Entry) Usernames() []string { return e.identities(models.IdentityUsername) }

func (e *Entry) identities(kind models.IdentityKind) []string {
	var out []string
	for _, c := range e.Contexts {
		if c.Identity.Kind == kind {
			out = append(out, c.Identity.Value)
		}
	}
	return out
}
