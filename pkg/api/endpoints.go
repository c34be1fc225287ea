package api

import (
	"fmt"
	"reflect"
	"strings"
)

// Endpoints pins one path per logical operation. CSRF is relative to the
// origin; every other path is relative to the API prefix. Paths containing
// {id} are expanded by the services.
type Endpoints struct {
	CSRF string `yaml:"csrf"`

	Register       string `yaml:"register"`
	Login          string `yaml:"login"`
	Logout         string `yaml:"logout"`
	Me             string `yaml:"me"`
	UpdateProfile  string `yaml:"update_profile"`
	ChangePassword string `yaml:"change_password"`
	ForgotPassword string `yaml:"forgot_password"`
	ResetPassword  string `yaml:"reset_password"`

	Users          string `yaml:"users"`
	User           string `yaml:"user"`
	UserStatus     string `yaml:"user_status"`
	UserElevate    string `yaml:"user_elevate"`
	UserRemoveRole string `yaml:"user_remove_role"`
	UserToggle     string `yaml:"user_toggle"`

	PendingSellers string `yaml:"pending_sellers"`
	ApproveSeller  string `yaml:"approve_seller"`
	RejectSeller   string `yaml:"reject_seller"`
	ChangeRole     string `yaml:"change_role"`

	Products      string `yaml:"products"`
	SellerApply   string `yaml:"seller_apply"`
	DeliveryApply string `yaml:"delivery_apply"`
	Addresses     string `yaml:"addresses"`
	Address       string `yaml:"address"`
}

// DefaultEndpoints returns the backend's published routes.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		CSRF: "/sanctum/csrf-cookie",

		Register:       "/auth/register",
		Login:          "/auth/login",
		Logout:         "/auth/logout",
		Me:             "/auth/me",
		UpdateProfile:  "/auth/profile",
		ChangePassword: "/auth/change-password",
		ForgotPassword: "/auth/forgot-password",
		ResetPassword:  "/auth/reset-password",

		Users:          "/admin/users",
		User:           "/admin/users/{id}",
		UserStatus:     "/admin/users/{id}/status",
		UserElevate:    "/admin/users/{id}/elevate",
		UserRemoveRole: "/admin/users/{id}/remove-role",
		UserToggle:     "/admin/users/{id}/toggle-status",

		PendingSellers: "/super-admin/pending-sellers",
		ApproveSeller:  "/super-admin/sellers/{id}/approve",
		RejectSeller:   "/super-admin/sellers/{id}/reject",
		ChangeRole:     "/super-admin/users/{id}/role",

		Products:      "/v1/seller/products",
		SellerApply:   "/seller/apply",
		DeliveryApply: "/delivery-agent/apply",
		Addresses:     "/addresses",
		Address:       "/addresses/{id}",
	}
}

// Merge returns e with every empty path filled from defaults.
func (e Endpoints) Merge(defaults Endpoints) Endpoints {
	ev := reflect.ValueOf(&e).Elem()
	dv := reflect.ValueOf(defaults)
	for i := 0; i < ev.NumField(); i++ {
		if ev.Field(i).String() == "" {
			ev.Field(i).SetString(dv.Field(i).String())
		}
	}
	return e
}

// Validate checks that every path is set and starts with a slash.
func (e Endpoints) Validate() error {
	ev := reflect.ValueOf(e)
	et := ev.Type()
	for i := 0; i < ev.NumField(); i++ {
		p := ev.Field(i).String()
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("api: endpoint %s must start with /, got %q", et.Field(i).Name, p)
		}
	}
	return nil
}

func expand(path string, id any) string {
	return strings.ReplaceAll(path, "{id}", fmt.Sprint(id))
}
