// Package cli implements the lodestar command: a small credential and
// profile tool over the SDK's session pipeline. Configuration comes from
// LODESTAR_* environment variables, command arguments from flags.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
	filestore "github.com/lodestar-hq/lodestar-go/pkg/credstore/drivers/file"
	redisstore "github.com/lodestar-hq/lodestar-go/pkg/credstore/drivers/redis"
	sqlitestore "github.com/lodestar-hq/lodestar-go/pkg/credstore/drivers/sqlite"
	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
	"github.com/lodestar-hq/lodestar-go/pkg/session"
	"github.com/lodestar-hq/lodestar-go/pkg/slogx"
)

const usage = `Usage: lodestar <command> [flags]

Commands:
  login    sign in and store the credential pair
  logout   discard the stored credential pair
  whoami   print the signed-in profile
  token    print the access token, for scripting
  refresh  exchange the refresh token for fresh credentials

Configuration via LODESTAR_API_URL, LODESTAR_STORE (memory|file|sqlite|redis)
and related LODESTAR_* variables.`

// Run executes one subcommand and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 1
	}
	name, rest := args[0], args[1:]
	if name == "help" || name == "-h" || name == "--help" {
		fmt.Fprintln(stdout, usage)
		return 0
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(stderr, "lodestar:", err)
		return 1
	}

	a, err := newApp(cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "lodestar:", err)
		return 1
	}
	defer a.close()

	var cmd func(context.Context, []string) error
	switch name {
	case "login":
		cmd = a.login
	case "logout":
		cmd = a.logout
	case "whoami":
		cmd = a.whoami
	case "token":
		cmd = a.token
	case "refresh":
		cmd = a.refresh
	default:
		fmt.Fprintf(stderr, "lodestar: unknown command %q\n\n%s\n", name, usage)
		return 1
	}

	if err := cmd(ctx, rest); err != nil {
		fmt.Fprintln(stderr, "lodestar:", err)
		return 1
	}
	return 0
}

// app holds one command invocation's session and client.
type app struct {
	cfg     Config
	manager *session.Manager
	client  *lodestar.Client
	stdout  io.Writer
	stderr  io.Writer
}

func newApp(cfg Config, stdout, stderr io.Writer) (*app, error) {
	log := slogx.New(slogx.Config{
		Service: "lodestar",
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  stderr,
	})

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, stdout: stdout, stderr: stderr}
	manager, client, err := session.Connect(session.Config{
		BaseURL:     cfg.APIURL,
		Store:       store,
		Notifier:    session.NotifierFunc(a.notify),
		InitTimeout: cfg.InitTimeout,
		Logger:      log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	a.manager = manager
	a.client = client
	return a, nil
}

func (a *app) close() {
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			fmt.Fprintln(a.stderr, "lodestar: close:", err)
		}
	}
}

// start hydrates the session and kicks off initialization. Commands that
// need a settled session go through the guard, which waits on the gate.
func (a *app) start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// notify prints pipeline notices on stderr, one line each.
func (a *app) notify(n session.Notice) {
	fmt.Fprintf(a.stderr, "[%s] %s\n", n.Severity, n.Message)
}

// openStore builds the credential store the config names.
func openStore(cfg Config) (credstore.Store, error) {
	switch cfg.Store {
	case "memory":
		return credstore.NewMemory(), nil
	case "file":
		path := cfg.StorePath
		if path == "" {
			path = defaultStorePath(".json")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		return filestore.New(path, cfg.StorePassphrase), nil
	case "sqlite":
		path := cfg.StorePath
		if path == "" {
			path = defaultStorePath(".db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		store, err := sqlitestore.New(path)
		if err != nil {
			return nil, err
		}
		if err := store.ApplyMigrations(); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate credential store: %w", err)
		}
		return store, nil
	case "redis":
		return redisstore.New(redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
