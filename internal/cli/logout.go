package cli

import (
	"context"
	"fmt"
)

func (a *app) logout(ctx context.Context, _ []string) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	if !a.manager.Credentials().HasAccessToken() {
		fmt.Fprintln(a.stdout, "Not signed in.")
		return nil
	}
	if err := a.manager.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Signed out.")
	return nil
}
