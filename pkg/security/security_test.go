package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUser_Roles(t *testing.T) {
	u := &User{Role: RoleSeller, Roles: []Role{RoleSeller, RoleDeliveryAgent}}

	if !u.HasRole(RoleDeliveryAgent) {
		t.Error("expected delivery_agent role")
	}
	if u.IsAdmin() {
		t.Error("expected seller not to be admin")
	}
	if len(u.AllRoles()) != 2 {
		t.Errorf("expected roles to be deduplicated, got %v", u.AllRoles())
	}
	if err := u.Require(RoleAdmin, RoleSuperAdmin); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	var nobody *User
	if err := nobody.Require(RoleBuyer); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	admin := &User{Role: RoleSuperAdmin}
	if !admin.IsAdmin() {
		t.Error("expected super admin to count as admin")
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole(" Delivery_Agent "); err != nil || r != RoleDeliveryAgent {
		t.Errorf("expected delivery_agent, got %q (%v)", r, err)
	}
	if _, err := ParseRole("mechanic"); err == nil {
		t.Error("expected unknown role error")
	}
}

func TestCSRFIssuer_Check(t *testing.T) {
	c := NewCSRFIssuer([]byte("secret"), time.Hour)

	rec := httptest.NewRecorder()
	token, err := c.Issue(rec)
	if err != nil {
		t.Fatal(err)
	}
	cookie := rec.Result().Cookies()[0]

	ok := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	ok.AddCookie(cookie)
	ok.Header.Set(XSRFHeader, token)
	if err := c.Check(ok); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}

	missing := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	missing.AddCookie(cookie)
	if err := c.Check(missing); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}

	forged := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	forged.AddCookie(&http.Cookie{Name: XSRFCookie, Value: "abc.1.xyz"})
	forged.Header.Set(XSRFHeader, "abc.1.xyz")
	if err := c.Check(forged); err == nil {
		t.Error("expected forged token to fail")
	}

	get := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if err := c.Check(get); err != nil {
		t.Errorf("expected GET to pass, got %v", err)
	}
}

func TestCSRFIssuer_Expiry(t *testing.T) {
	c := NewCSRFIssuer([]byte("secret"), time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	token, _ := c.GenerateToken()
	now = now.Add(2 * time.Minute)

	if err := c.ValidateToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestCSRFIssuer_MiddlewareReturns419(t *testing.T) {
	c := NewCSRFIssuer(nil, 0)
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/auth/profile", nil))
	if rec.Code != 419 {
		t.Errorf("expected 419, got %d", rec.Code)
	}
}

func TestSanitizer(t *testing.T) {
	s := NewSanitizer(0)

	tests := []struct {
		in   string
		want string
	}{
		{"Bikes & Parts", "Bikes & Parts"},
		{"<b>Fast</b>   delivery", "Fast delivery"},
		{"<script>alert(1)</script>Hello", "Hello"},
		{"line one\n  line   two ", "line one\nline two"},
	}
	for _, tt := range tests {
		if got := s.Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}

	if got := NewSanitizer(4).Sanitize("Mountain"); got != "Moun" {
		t.Errorf("expected truncation to 4 runes, got %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd":   "passwd",
		`C:\Users\me\id.pdf`: "id.pdf",
		`bad"name<>.png`:     "badname.png",
		"":                   "file",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer 1|abc")
	if BearerToken(r) != "1|abc" {
		t.Errorf("expected 1|abc, got %q", BearerToken(r))
	}
}
