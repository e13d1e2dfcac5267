package cli

import (
	"context"
	"errors"
	"fmt"
)

// errNotSignedIn is the shared failure for commands that need a session.
var errNotSignedIn = errors.New("not signed in")

func (a *app) whoami(ctx context.Context, _ []string) error {
	if err := a.start(ctx); err != nil {
		return err
	}

	ok, err := a.manager.Guard().Check(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNotSignedIn
	}

	user := a.manager.State().CurrentUser()
	fmt.Fprintf(a.stdout, "%s <%s>\n", user.Name, user.Email)
	fmt.Fprintf(a.stdout, "id: %s\n", user.ID)
	if user.AvatarURL != "" {
		fmt.Fprintf(a.stdout, "avatar: %s\n", user.AvatarURL)
	}
	if !user.IsActive {
		fmt.Fprintln(a.stdout, "account: inactive")
	}
	if !user.IsVerified {
		fmt.Fprintln(a.stdout, "email: unverified")
	}
	return nil
}
