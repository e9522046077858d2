// Command auther is an interactive credential keeper. Credentials live in a
// TOML vault file, optionally sealed with a file key, and can be backed up
// to the auther snapshot server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/atinyakov/auther/internal/client/storage"
	"github.com/atinyakov/auther/internal/config"
	"github.com/atinyakov/auther/internal/logger"
)

const apiRegister = "/api/register"

var (
	version   string
	buildDate string
)

func main() {
	opts, err := config.ParseClient(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.ShowVersion {
		fmt.Printf("Auther Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	if err := log.Init(opts.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, log.Log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *config.ClientOptions, log *zap.Logger) error {
	switch opts.Command {
	case "register":
		if err := storage.Register(ctx, opts.BaseURL+apiRegister, opts.Login, opts.CAFile, opts.CertFile, opts.KeyFile); err != nil {
			return err
		}
		fmt.Printf("Registered %s, certificate written to %s\n", opts.Login, opts.CertFile)
		return nil
	case "shell":
		return runShell(ctx, opts, log)
	default:
		return fmt.Errorf("unknown command: %s", opts.Command)
	}
}

func runShell(ctx context.Context, opts *config.ClientOptions, log *zap.Logger) error {
	path, err := storage.ResolvePath(opts.File)
	if err != nil {
		return err
	}
	p := storage.NewPrompter(os.Stdin, os.Stdout)
	fileKey, err := p.Secret("Vault file key (empty for none): ")
	if err != nil {
		return err
	}

	ls := storage.NewLocalStorage(path)
	if err := ls.Load(fileKey); err != nil {
		return err
	}
	log.Debug("vault loaded", zap.String("path", path), zap.Int("entries", ls.Len()))

	sh := &shell{p: p, out: os.Stdout, ls: ls, fileKey: fileKey, log: log, clip: clipboard.WriteAll}
	if opts.BaseURL != "" {
		client, err := storage.LoadClientCertificate(opts.CertFile, opts.KeyFile, opts.CAFile)
		if err != nil {
			return err
		}
		sh.client, sh.baseURL = client, opts.BaseURL
		switch {
		case opts.SyncInterval.Duration <= 0:
		case fileKey == "":
			log.Warn("background sync disabled", zap.Error(storage.ErrNoFileKey))
		default:
			storage.StartAutoSync(ctx, client, opts.BaseURL, ls, fileKey, opts.SyncInterval.Duration, log)
		}
	}
	return sh.run(ctx)
}
