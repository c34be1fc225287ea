package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/oshocks/bikeshop/pkg/security"
	"github.com/oshocks/bikeshop/pkg/submit"
)

// SellerApplication is a seller awaiting review.
type SellerApplication struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	BusinessName string         `json:"business_name"`
	BusinessType string         `json:"business_type"`
	Phone        string         `json:"phone"`
	County       string         `json:"county"`
	Status       string         `json:"status"`
	CreatedAt    string         `json:"created_at"`
	User         *security.User `json:"user,omitempty"`
}

// SuperAdminService covers seller approval and role assignment.
type SuperAdminService struct {
	c *Client
}

// SuperAdmin returns the super-admin service.
func (c *Client) SuperAdmin() *SuperAdminService {
	return &SuperAdminService{c: c}
}

// PendingSellers lists seller applications awaiting review.
func (s *SuperAdminService) PendingSellers(ctx context.Context) ([]SellerApplication, error) {
	var raw json.RawMessage
	if err := s.c.Do(ctx, http.MethodGet, s.c.endpoints.PendingSellers, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[SellerApplication](raw, "sellers", "applications")
}

// ApproveSeller approves a seller.
func (s *SuperAdminService) ApproveSeller(ctx context.Context, id int64) error {
	return s.c.Do(ctx, http.MethodPut, expand(s.c.endpoints.ApproveSeller, id), nil, nil)
}

// RejectSeller rejects a seller with a reason shown to the applicant.
func (s *SuperAdminService) RejectSeller(ctx context.Context, id int64, reason string) error {
	return s.c.Do(ctx, http.MethodPut, expand(s.c.endpoints.RejectSeller, id), submit.JSON{"reason": reason}, nil)
}

// ChangeRole replaces a user's primary role.
func (s *SuperAdminService) ChangeRole(ctx context.Context, id int64, role security.Role) error {
	return s.c.Do(ctx, http.MethodPut, expand(s.c.endpoints.ChangeRole, id), submit.JSON{"role": string(role)}, nil)
}
