// Package main runs the auther snapshot server: an HTTPS service that keeps
// each user's latest sealed vault file, authenticating users by client
// certificate.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/auther/internal/certgen"
	"github.com/atinyakov/auther/internal/config"
	"github.com/atinyakov/auther/internal/db"
	"github.com/atinyakov/auther/internal/logger"
	"github.com/atinyakov/auther/internal/repository"
	"github.com/atinyakov/auther/internal/server/handler/http"
	"github.com/atinyakov/auther/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartSnapshotCleaner(ctx, postgresDB,
		options.CleanInterval.Duration,
		options.Retention.Duration,
		zapLogger,
	)

	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	snapshotRepo := repository.NewPostgresSnapshotRepository(postgresDB)

	authService := service.NewAuthService(authRepo)
	syncService := service.NewSyncService(snapshotRepo)

	ca, err := certgen.LoadCACredentials(
		filepath.Join(options.CertsDir, "ca.crt"),
		filepath.Join(options.CertsDir, "ca.key"),
	)
	if err != nil {
		zapLogger.Fatal("failed to load CA", zap.Error(err))
	}

	authHandler := &http.AuthHandler{AuthService: authService, CA: ca, Log: zapLogger}
	syncHandler := &http.SyncHandler{SyncService: syncService, Log: zapLogger}
	router := http.NewRouter(authHandler, syncHandler, zapLogger)

	cert, err := tls.LoadX509KeyPair(
		filepath.Join(options.CertsDir, "server.crt"),
		filepath.Join(options.CertsDir, "server.key"),
	)
	if err != nil {
		zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
	}
	caCertPool := x509.NewCertPool()
	caCertPool.AddCert(ca.Cert)

	// Registration happens before the client has a certificate, so one is
	// verified only if given; CertAuth rejects the rest.
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.VerifyClientCertIfGiven,
		ClientCAs:    caCertPool,
		MinVersion:   tls.VersionTLS12,
	}

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
	if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
