package tasty

import (
	"context"
	"errors"
	"net/http"
)

type loginRequest struct {
	Login      string `json:"login"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember-me"`
}

type loginResponse struct {
	SessionToken string `json:"session-token"`
}

// Login opens a session and keeps its token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("tasty: username and password are required")
	}
	var resp envelope[loginResponse]
	req := loginRequest{Login: username, Password: password, RememberMe: true}
	if err := c.do(ctx, http.MethodPost, "/sessions", req, http.StatusCreated, false, &resp); err != nil {
		return err
	}
	if resp.Data.SessionToken == "" {
		return errors.New("tasty: login response carried no session token")
	}
	c.setToken(resp.Data.SessionToken)
	c.log.WithComponent("tasty").Info("session started")
	return nil
}

// Logout ends the current session. It is a no-op without one.
func (c *Client) Logout(ctx context.Context) error {
	if c.SessionToken() == "" {
		return nil
	}
	if err := c.do(ctx, http.MethodDelete, "/sessions", nil, http.StatusNoContent, true, nil); err != nil {
		return err
	}
	c.setToken("")
	c.log.WithComponent("tasty").Info("session ended")
	return nil
}
