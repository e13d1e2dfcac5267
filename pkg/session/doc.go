/*
Package session maintains an authenticated session against the Lodestar API:
it keeps the credential pair in sync with a persistent store, mirrors the
account profile into observable state, and wraps every API request in a
transport that attaches the access token and classifies failures.

# Wiring

Connect builds the manager and a matching API client in one call:

	mgr, client, err := session.Connect(session.Config{
		BaseURL: "https://api.lodestar.example",
		Store:   credstore.NewMemory(),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer mgr.Close()

	if err := mgr.Start(ctx); err != nil {
		log.Fatal(err)
	}

Start restores a previous session when the store holds a token: it fetches
the profile once and settles the initialization gate, so callers can block
on mgr.WaitReady before deciding whether to show a login screen.

# Session lifecycle

Tokens enter the session through StoreTokens, typically with the response
of a login or refresh call:

	tokens, err := client.Login(ctx, lodestar.LoginRequest{...})
	if err == nil {
		err = mgr.StoreTokens(ctx, tokens)
	}

From there the profile synchronizer takes over: it fetches /users/me,
publishes the user into State, and keeps Authenticated equal to "a user is
known and an access token is stored". A profile fetch failure while a token
is held drops the credentials, since a token that cannot identify its user
is worthless.

# Failure handling

The transport classifies every failed API response and reacts once per
failure: a 401 outside the auth endpoints ends the session (credentials
cleared, user reset, redirect to login), most other failures surface a
single user notice, and a small set of routes fail quietly into the log.
The response itself always continues to the caller untouched.
*/
package session
