package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/oshocks/bikeshop/pkg/security"
	"github.com/oshocks/bikeshop/pkg/submit"
)

// UserFilter narrows an admin user listing. Zero fields are ignored.
type UserFilter struct {
	Role    security.Role
	Status  string
	Search  string
	Page    int
	PerPage int
}

func (f UserFilter) query() string {
	q := url.Values{}
	if f.Role != "" {
		q.Set("role", string(f.Role))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// UserService covers admin user management. Each method maps to one endpoint.
type UserService struct {
	c *Client
}

// Users returns the admin user service.
func (c *Client) Users() *UserService {
	return &UserService{c: c}
}

// List returns the users matching f.
func (s *UserService) List(ctx context.Context, f UserFilter) ([]security.User, error) {
	var raw json.RawMessage
	if err := s.c.Do(ctx, http.MethodGet, s.c.endpoints.Users+f.query(), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[security.User](raw, "users")
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id int64) (*security.User, error) {
	var raw json.RawMessage
	if err := s.c.Do(ctx, http.MethodGet, expand(s.c.endpoints.User, id), nil, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// UpdateStatus sets a user's status.
func (s *UserService) UpdateStatus(ctx context.Context, id int64, status string) error {
	return s.c.Do(ctx, http.MethodPut, expand(s.c.endpoints.UserStatus, id), submit.JSON{"status": status}, nil)
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.c.Do(ctx, http.MethodDelete, expand(s.c.endpoints.User, id), nil, nil)
}

// Elevate grants a role.
func (s *UserService) Elevate(ctx context.Context, id int64, role security.Role) error {
	return s.c.Do(ctx, http.MethodPost, expand(s.c.endpoints.UserElevate, id), submit.JSON{"role": string(role)}, nil)
}

// RemoveRole revokes a role.
func (s *UserService) RemoveRole(ctx context.Context, id int64, role security.Role) error {
	return s.c.Do(ctx, http.MethodPost, expand(s.c.endpoints.UserRemoveRole, id), submit.JSON{"role": string(role)}, nil)
}

// ToggleStatus flips a user between active and inactive.
func (s *UserService) ToggleStatus(ctx context.Context, id int64) error {
	return s.c.Do(ctx, http.MethodPost, expand(s.c.endpoints.UserToggle, id), nil, nil)
}
