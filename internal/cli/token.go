package cli

import (
	"context"
	"fmt"
)

// token prints the raw access token for use in scripts, e.g.
// curl -H "Authorization: Bearer $(lodestar token)".
func (a *app) token(ctx context.Context, _ []string) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	access := a.manager.Credentials().AccessToken()
	if access == "" {
		return errNotSignedIn
	}
	fmt.Fprintln(a.stdout, access)
	return nil
}
