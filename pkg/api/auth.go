package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/oshocks/bikeshop/pkg/logging"
	"github.com/oshocks/bikeshop/pkg/security"
	"github.com/oshocks/bikeshop/pkg/submit"
)

// Session is the outcome of a login or registration.
type Session struct {
	Token string
	User  *security.User
}

type authResponse struct {
	Token       string         `json:"token"`
	AccessToken string         `json:"access_token"`
	User        *security.User `json:"user"`
}

func (r authResponse) session() Session {
	s := Session{Token: r.Token, User: r.User}
	if s.Token == "" {
		s.Token = r.AccessToken
	}
	return s
}

// AuthService covers account operations.
type AuthService struct {
	c *Client
}

// Auth returns the account service.
func (c *Client) Auth() *AuthService {
	return &AuthService{c: c}
}

// Register creates an account from a registration payload. When the backend
// answers with a token it is saved, as after Login.
func (s *AuthService) Register(ctx context.Context, body submit.Payload) (*Session, error) {
	var resp authResponse
	if err := s.c.Do(ctx, http.MethodPost, s.c.endpoints.Register, body, &resp); err != nil {
		return nil, err
	}
	sess := resp.session()
	if sess.Token != "" {
		if err := s.saveToken(ctx, sess.Token); err != nil {
			return nil, err
		}
	}
	return &sess, nil
}

// Login authenticates and saves the bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	body := submit.JSON{"email": email, "password": password}

	var resp authResponse
	if err := s.c.Do(ctx, http.MethodPost, s.c.endpoints.Login, body, &resp); err != nil {
		return nil, err
	}
	sess := resp.session()
	if sess.Token == "" {
		return nil, fmt.Errorf("%w: login response has no token", ErrBadResponse)
	}
	if err := s.saveToken(ctx, sess.Token); err != nil {
		return nil, err
	}
	s.c.logger.Info("logged in", logging.String("email", email))
	return &sess, nil
}

func (s *AuthService) saveToken(ctx context.Context, token string) error {
	if s.c.tokens == nil {
		return nil
	}
	if err := s.c.tokens.SetToken(ctx, token); err != nil {
		return fmt.Errorf("api: save token: %w", err)
	}
	return nil
}

// Logout ends the session. The local token is cleared even if the call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	callErr := s.c.Do(ctx, http.MethodPost, s.c.endpoints.Logout, nil, nil)
	var clearErr error
	if s.c.tokens != nil {
		clearErr = s.c.tokens.Clear(ctx)
	}
	if callErr != nil {
		s.c.logger.Warn("logout call failed, token cleared locally", logging.Err(callErr))
	}
	return errors.Join(callErr, clearErr)
}

// Me returns the logged-in user.
func (s *AuthService) Me(ctx context.Context) (*security.User, error) {
	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.c.Do(ctx, http.MethodGet, s.c.endpoints.Me, nil, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

func (s *AuthService) requireToken(ctx context.Context) error {
	if s.c.tokens == nil {
		return ErrNoToken
	}
	tok, err := s.c.tokens.Token(ctx)
	if err != nil || tok == "" {
		return ErrNoToken
	}
	return nil
}

// ProfileUpdate holds the editable profile fields. Empty fields are omitted.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// UpdateProfile changes the logged-in user's profile.
func (s *AuthService) UpdateProfile(ctx context.Context, p ProfileUpdate) (*security.User, error) {
	body := submit.JSON{}
	if p.Name != "" {
		body["name"] = p.Name
	}
	if p.Email != "" {
		body["email"] = p.Email
	}
	if p.Phone != "" {
		body["phone"] = p.Phone
	}
	var raw json.RawMessage
	if err := s.c.Do(ctx, http.MethodPut, s.c.endpoints.UpdateProfile, body, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// ChangePassword sets a new password.
func (s *AuthService) ChangePassword(ctx context.Context, current, password, confirmation string) error {
	body := submit.JSON{
		"current_password":      current,
		"password":              password,
		"password_confirmation": confirmation,
	}
	return s.c.Do(ctx, http.MethodPost, s.c.endpoints.ChangePassword, body, nil)
}

// ForgotPassword asks the backend to mail a reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.c.Do(ctx, http.MethodPost, s.c.endpoints.ForgotPassword, submit.JSON{"email": email}, nil)
}

// PasswordReset completes a reset started by ForgotPassword.
type PasswordReset struct {
	Token                string
	Email                string
	Password             string
	PasswordConfirmation string
}

// ResetPassword sets a new password using a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, r PasswordReset) error {
	body := submit.JSON{
		"token":                 r.Token,
		"email":                 r.Email,
		"password":              r.Password,
		"password_confirmation": r.PasswordConfirmation,
	}
	return s.c.Do(ctx, http.MethodPost, s.c.endpoints.ResetPassword, body, nil)
}
