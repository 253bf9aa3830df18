// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/olegiv/clinic-admin/internal/resource"
)

// LoginPath is the API route that exchanges credentials for a token.
const LoginPath = "auth/login"

// User is the authenticated admin as reported by the API.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// LoginResult is a successful login response.
type LoginResult struct {
	Token string
	User  User
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type wireUser struct {
	ID       any    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Login exchanges credentials for a session token. It is the only call made without
// a token, and a 401 here means bad credentials, not an expired session.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	status, payload, err := c.send(ctx, http.MethodPost, LoginPath, loginRequest{Email: email, Password: password}, "")
	if err != nil {
		return LoginResult{}, err
	}
	raw, err := c.result(status, payload)
	if err != nil {
		return LoginResult{}, err
	}
	return decodeLogin(raw)
}

func decodeLogin(raw json.RawMessage) (LoginResult, error) {
	var body struct {
		Token string    `json:"token"`
		User  *wireUser `json:"user"`
		Data  *struct {
			Token string    `json:"token"`
			User  *wireUser `json:"user"`
		} `json:"data"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return LoginResult{}, fmt.Errorf("apiclient: decode login: %w", err)
	}
	token, user := body.Token, body.User
	if token == "" && body.Data != nil {
		token, user = body.Data.Token, body.Data.User
	}
	if token == "" || user == nil {
		return LoginResult{}, ErrInvalidLoginResponse
	}
	username := user.Username
	if username == "" {
		username = user.Name
	}
	if username == "" {
		username = user.Email
	}
	return LoginResult{
		Token: token,
		User: User{
			ID:       resource.IDString(user.ID),
			Username: username,
			Email:    user.Email,
			Role:     user.Role,
		},
	}, nil
}
