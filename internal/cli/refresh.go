package cli

import (
	"context"
	"fmt"
)

func (a *app) refresh(ctx context.Context, _ []string) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	refresh := a.manager.Credentials().RefreshToken()
	if refresh == "" {
		return errNotSignedIn
	}

	tokens, err := a.client.Refresh(ctx, refresh)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if err := a.manager.StoreTokens(ctx, tokens); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Credentials refreshed.")
	return nil
}
