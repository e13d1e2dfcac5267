package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lodestar-hq/lodestar-go/internal/apitest"
)

// runCLI executes one subcommand with a fresh stdout/stderr pair.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errBuf bytes.Buffer
	code = Run(context.Background(), args, &out, &errBuf)
	return code, out.String(), errBuf.String()
}

// setupEnv points the CLI at a fake API with a file store in a temp dir.
func setupEnv(t *testing.T) *apitest.Server {
	t.Helper()
	api := apitest.NewServer()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	t.Setenv("LODESTAR_API_URL", srv.URL)
	t.Setenv("LODESTAR_STORE", "file")
	t.Setenv("LODESTAR_STORE_PATH", filepath.Join(t.TempDir(), "credentials.json"))
	t.Setenv("LODESTAR_STORE_PASSPHRASE", "cli-test-passphrase")
	return api
}

func TestLoginWhoamiLogout(t *testing.T) {
	api := setupEnv(t)
	api.Seed("Dana", "dana@example.com", "correct-horse")

	code, out, stderr := runCLI(t, "login", "-email", "dana@example.com", "-password", "correct-horse")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	require.Contains(t, out, "Signed in as Dana <dana@example.com>")

	code, out, _ = runCLI(t, "whoami")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Dana <dana@example.com>")

	code, out, _ = runCLI(t, "token")
	require.Equal(t, 0, code)
	require.NotEmpty(t, out)

	code, out, _ = runCLI(t, "logout")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Signed out.")

	code, _, stderr = runCLI(t, "whoami")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "not signed in")
}

func TestLoginBadPassword(t *testing.T) {
	api := setupEnv(t)
	api.Seed("Dana", "dana@example.com", "correct-horse")

	code, _, stderr := runCLI(t, "login", "-email", "dana@example.com", "-password", "wrong")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "invalid credentials")
}

func TestRefreshRotatesCredentials(t *testing.T) {
	api := setupEnv(t)
	api.Seed("Dana", "dana@example.com", "correct-horse")

	code, _, stderr := runCLI(t, "login", "-email", "dana@example.com", "-password", "correct-horse")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	_, before, _ := runCLI(t, "token")

	code, out, stderr := runCLI(t, "refresh")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	require.Contains(t, out, "Credentials refreshed.")

	_, after, _ := runCLI(t, "token")
	require.NotEqual(t, before, after)
}

func TestRefreshWithoutSession(t *testing.T) {
	setupEnv(t)

	code, _, stderr := runCLI(t, "refresh")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "not signed in")
}

func TestUnknownCommand(t *testing.T) {
	setupEnv(t)

	code, _, stderr := runCLI(t, "frobnicate")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unknown command")
}

func TestHelp(t *testing.T) {
	code, out, _ := runCLI(t, "help")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Usage: lodestar")
}
