package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate posts credentials to auth/login. It implements session.Authenticator.
// A 401 here never clears the session: it is an ordinary bad-credentials reply.
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, json.RawMessage, error) {
	if email == "" || password == "" {
		return "", nil, errors.New("email and password required")
	}
	env, err := Fetch[json.RawMessage](ctx, c, Request{
		Method:    http.MethodPost,
		Endpoint:  "/auth/login",
		Body:      loginRequest{Email: email, Password: password},
		Anonymous: true,
	}).Get()
	if err != nil {
		if IsTransport(err) {
			return "", nil, fmt.Errorf("connection error, ensure the backend server is running: %w", err)
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			return "", nil, errors.New("login failed")
		}
		return "", nil, err
	}
	if !env.Success || env.Token == "" {
		if env.Message != "" {
			return "", nil, errors.New(env.Message)
		}
		return "", nil, errors.New("login failed")
	}
	return env.Token, env.Admin, nil
}
