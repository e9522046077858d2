package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityConstructors(t *testing.T) {
	assert.Equal(t, Identity{Kind: IdentityEmail, Value: "a@b.c"}, Email("a@b.c"))
	assert.Equal(t, Identity{Kind: IdentityUsername, Value: "bob"}, Username("bob"))
	assert.Equal(t, Identity{}, Email(""))
	assert.Equal(t, Identity{}, Username(""))
}

func TestContextRecord_RoundTrip(t *testing.T) {
	cases := []Context{
		{Site: "a"},
		{Site: "a", Identity: Email("a@b.c")},
		{Site: "a", Identity: Username("bob")},
		{Site: "a", Identity: Email("")},
		{Site: "a", Identity: Username("")},
	}
	for _, c := range cases {
		got, ok := c.Record().Context()
		assert.True(t, ok)
		assert.Equal(t, c, got)
	}
}

func TestContextRecord_EmptyValueWrittenAsNone(t *testing.T) {
	c := Context{Site: "a", Identity: Identity{Kind: IdentityEmail}}
	assert.Equal(t, ContextRecord{Site: "a"}, c.Record())
}

func TestContextRecord_BothIdentities(t *testing.T) {
	_, ok := ContextRecord{Site: "a", Email: "a@b.c", Username: "bob"}.Context()
	assert.False(t, ok)
}
