package vault

import (
	"fmt"

	"github.com/atinyakov/auther/internal/models"
	"github.com/atinyakov/auther/internal/passkey"
)

// Store is an ordered collection of entries. Entries are never dropped;
// only their contexts shrink.
type Store struct {
	entries []*Entry
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Insert adds e, merging it into the first existing entry whose credential
// matches without a passphrase. On a merge e's contexts are appended to
// that entry, which is returned with true; otherwise e itself is stored and
// returned with false.
//
// Two ciphertexts only merge when their bytes are identical.
func (s *Store) Insert(e *Entry) (*Entry, bool) {
	for _, existing := range s.entries {
		if existing.Check(e.Credential, passkey.NoKey) {
			existing.Contexts = append(existing.Contexts, e.Contexts...)
			return existing, true
		}
	}
	s.entries = append(s.entries, e)
	return e, false
}

// Lookup returns the first entry, in insertion order, that matches query.
// See Entry.Matches.
func (s *Store) Lookup(query models.Context) (*Entry, bool) {
	for _, e := range s.entries {
		if e.Matches(query) {
			return e, true
		}
	}
	return nil, false
}

// Entries returns the entries in insertion order. The slice is a copy; the
// entries are shared.
func (s *Store) Entries() []*Entry {
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// RemoveContext drops ctx from every entry and returns how many records went.
func (s *Store) RemoveContext(ctx models.Context) int {
	n := 0
	for _, e := range s.entries {
		n += e.Remove(ctx)
	}
	return n
}

// Records returns the serialized form of the store.
func (s *Store) Records() []models.EntryRecord {
	out := make([]models.EntryRecord, 0, len(s.entries))
	for _, e := range s.entries {
		kind, secret := passkey.Encode(e.Credential)
		rec := models.EntryRecord{Kind: kind, Secret: secret, Contexts: make([]models.ContextRecord, 0, len(e.Contexts))}
		for _, c := range e.Contexts {
			rec.Contexts = append(rec.Contexts, c.Record())
		}
		out = append(out, rec)
	}
	return out
}

// FromRecords rebuilds a store. Records are taken as they are; duplicates
// are not merged.
func FromRecords(records []models.EntryRecord) (*Store, error) {
	s := New()
	for i, rec := range records {
		cred, err := passkey.Decode(rec.Kind, rec.Secret)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		e := NewEntry(cred)
		for j, cr := range rec.Contexts {
			c, ok := cr.Context()
			if !ok {
				return nil, fmt.Errorf("entry %d context %d: %w: both email and username set", i, j, passkey.ErrMalformedRecord)
			}
			e.Add(c)
		}
		s.entries = append(s.entries, e)
	}
	return s, nil
}
