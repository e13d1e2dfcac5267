package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/lodestar-hq/lodestar-go/pkg/lodestar"
)

// readPassword is a seam for term.ReadPassword so tests can avoid the
// terminal.
var readPassword = term.ReadPassword

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	email := fs.String("email", "", "account email (required)")
	password := fs.String("password", "", "account password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("login: -email is required")
	}

	pw := *password
	if pw == "" {
		var err error
		pw, err = promptPassword(a.stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}
	if pw == "" {
		return errors.New("login: empty password")
	}

	if err := a.start(ctx); err != nil {
		return err
	}

	tokens, err := a.client.Login(ctx, lodestar.LoginRequest{Email: *email, Password: pw})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := a.manager.StoreTokens(ctx, tokens); err != nil {
		return err
	}

	user, err := a.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	fmt.Fprintf(a.stdout, "Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// and as a plain line otherwise, so piped input keeps working.
func promptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(w, "Password: ")
		raw, err := readPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
