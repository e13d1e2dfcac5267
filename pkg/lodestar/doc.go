/*
Package lodestar provides a typed Go client for the Lodestar platform API.

The client covers the account surface the session layer is built on:
registration, login, token refresh, password reset, and the authenticated
profile endpoints.

# Basic Usage

Create a client with the API base URL and call endpoints directly:

	client := lodestar.New("https://api.lodestar.example")

	tokens, err := client.Login(ctx, lodestar.LoginRequest{
		Email:    "dev@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		log.Fatal(err)
	}

The client itself is stateless: it attaches no Authorization header and
keeps no tokens. Pair it with the session package, which installs a
transport that decorates API requests with the stored access token and
classifies failures:

	mgr, client, err := session.Connect(session.Config{
		BaseURL: "https://api.lodestar.example",
		Store:   credstore.NewMemory(),
	})

# Errors

Failed requests return *APIError with the HTTP status and a display-ready
message extracted from the response body:

	_, err := client.Me(ctx)
	var apiErr *lodestar.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		// prompt for login
	}
*/
package lodestar
