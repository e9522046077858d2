package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/auther/internal/client/storage"
	"github.com/atinyakov/auther/internal/models"
	"github.com/atinyakov/auther/internal/passkey"
)

func newTestShell(t *testing.T, script string) (*shell, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &shell{
		p:   storage.NewReaderPrompter(strings.NewReader(script), &out),
		out: &out,
		ls:  storage.NewLocalStorage(filepath.Join(t.TempDir(), storage.DefaultFileName)),
		log: zap.NewNop(),
	}, &out
}

func TestShell_AddMergeAndGet(t *testing.T) {
	script := strings.Join([]string{
		"add", "example.com", "me@example.com", "", "hunter2", "",
		"add", "other.org", "", "", "hunter2", "",
		"get other.org",
		"list",
		"exit",
		"never reached",
	}, "\n") + "\n"
	sh, out := newTestShell(t, script)

	require.NoError(t, sh.run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "Credential added")
	assert.Contains(t, got, "Credential already stored, contexts merged")
	assert.Contains(t, got, "hunter2\n")
	assert.Contains(t, got, "#1 [plaintext]\n  example.com email:me@example.com\n  other.org\n---")
	assert.True(t, strings.HasSuffix(got, "Bye\n"))
	assert.Equal(t, 1, sh.ls.Len())

	reloaded := storage.NewLocalStorage(sh.ls.Path)
	require.NoError(t, reloaded.Load(""))
	assert.Equal(t, 1, reloaded.Len())
}

func TestShell_EncryptedLifecycle(t *testing.T) {
	script := strings.Join([]string{
		"add", "bank", "", "alice", "s3cret", "k1",
		"get bank", "",
		"get bank user:alice", "k1",
		"verify bank", "k1", "wrong",
		"digest bank", "k1", "n",
		"digest bank", "k1", "y",
		"get bank",
		"verify bank", "s3cret",
	}, "\n") + "\n"
	sh, out := newTestShell(t, script)

	require.NoError(t, sh.run(context.Background()), "end of input stops the shell")

	got := out.String()
	assert.Contains(t, got, "Error: "+passkey.ErrMissingPassphrase.Error())
	assert.Contains(t, got, "s3cret\n")
	assert.Contains(t, got, "No match")
	assert.Contains(t, got, "Cancelled")
	assert.Contains(t, got, "Credential replaced by its digest")
	assert.Contains(t, got, "Error: "+storage.ErrDigestHidden.Error())
	assert.Contains(t, got, "Match\n")

	raw, err := os.ReadFile(sh.ls.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `kind = "digest"`)
	assert.NotContains(t, string(raw), "s3cret")
}

func TestShell_Copy(t *testing.T) {
	sh, out := newTestShell(t, "add\nsite\n\n\npw\nk1\ncopy site\nk1\ncopy site\nk1\n")
	var clipped []string
	calls := 0
	sh.clip = func(s string) error {
		calls++
		if calls == 2 {
			return errors.New("no display")
		}
		clipped = append(clipped, s)
		return nil
	}

	require.NoError(t, sh.run(context.Background()))

	got := out.String()
	assert.Equal(t, []string{"pw"}, clipped)
	assert.Equal(t, 1, strings.Count(got, "Copied to clipboard"))
	assert.Contains(t, got, "Error: clipboard: no display")
	assert.NotContains(t, got, "pw\n")
}

func TestShell_Errors(t *testing.T) {
	script := strings.Join([]string{
		"",
		"get",
		"get nowhere.org",
		"remove nowhere.org",
		"sync",
		"pull",
		"frobnicate",
		"help",
	}, "\n") + "\n"
	sh, out := newTestShell(t, script)

	require.NoError(t, sh.run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "Error: usage: get site")
	assert.Equal(t, 2, strings.Count(got, "Error: "+storage.ErrNotFound.Error()))
	assert.Equal(t, 2, strings.Count(got, "Error: "+errOffline.Error()))
	assert.Contains(t, got, "Unknown command")
	assert.Contains(t, got, "Available commands:")
}

func TestShell_RemoveSaveLoad(t *testing.T) {
	script := strings.Join([]string{
		"add", "a.com", "x@a.com", "xa", "pw", "",
		"remove a.com user:xa",
		"load",
		"save",
	}, "\n") + "\n"
	sh, out := newTestShell(t, script)

	require.NoError(t, sh.run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "Removed 1 context(s)")
	assert.Contains(t, got, "Loaded 1 entries")
	assert.Contains(t, got, "Saved "+sh.ls.Path)

	e, ok := sh.ls.Lookup(models.Context{Site: "a.com"})
	require.True(t, ok)
	assert.Equal(t, []string{"x@a.com"}, e.Emails())
	assert.Empty(t, e.Usernames())
}

func TestShell_Sync(t *testing.T) {
	var uploaded models.Snapshot
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&uploaded)) {
			return
		}
		_ = json.NewEncoder(w).Encode(models.SyncResult{Accepted: true, Version: uploaded.Version})
	}))
	defer srv.Close()

	sh, out := newTestShell(t, "add\nsite\n\n\npw\n\nsync\n")
	sh.fileKey = "file key"
	sh.client = srv.Client()
	sh.baseURL = srv.URL

	require.NoError(t, sh.run(context.Background()))

	assert.Contains(t, out.String(), "Server accepted version")
	assert.Equal(t, sh.ls.CurrentVersion(), uploaded.Version)
	assert.NotEmpty(t, uploaded.Data)
}
