package http_test

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/atinyakov/auther/internal/models"
	handler "github.com/atinyakov/auther/internal/server/handler/http"
)

// existingUsers reports every login as registered.
type existingUsers struct{}

func (existingUsers) UserExists(context.Context, string) (bool, error) { return true, nil }
func (existingUsers) RegisterUser(context.Context, string) error { return nil }

func TestNewRouter(t *testing.T) {
	sync := &fakeSyncService{latest: &models.Snapshot{Version: 1, Data: []byte("d")}}
	router := handler.NewRouter(
		&handler.AuthHandler{AuthService: existingUsers{}},
		&handler.SyncHandler{SyncService: sync},
		zap.NewNop(),
	)
	alice := &tls.ConnectionState{PeerCertificates: []*x509.Certificate{{Subject: pkix.Name{CommonName: "alice"}}}}

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		tls         *tls.ConnectionState
		wantCode    int
	}{
		{"vault without certificate", http.MethodGet, "/api/vault", "", "", nil, http.StatusUnauthorized},
		{"vault with certificate", http.MethodGet, "/api/vault", "", "", alice, http.StatusOK},
		{"register is public", http.MethodPost, "/api/register", `{"login":"alice"}`, "application/json", nil, http.StatusConflict},
		{"sync needs JSON", http.MethodPost, "/api/sync", "x", "text/plain", alice, http.StatusUnsupportedMediaType},
		{"login", http.MethodPost, "/api/login", "", "", alice, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/secrets", "", "", alice, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			req.TLS = tt.tls
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d; want %d (body %q)", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}
