package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Cookie and header names of the Sanctum CSRF scheme.
const (
	XSRFCookie = "XSRF-TOKEN"
	XSRFHeader = "X-XSRF-TOKEN"
)

// Common CSRF errors.
var (
	ErrInvalidToken     = errors.New("invalid CSRF token")
	ErrMissingToken     = errors.New("missing CSRF token")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
)

// CSRFIssuer mints and checks signed XSRF tokens: a browser-readable cookie
// whose value must be echoed back in the X-XSRF-TOKEN header.
type CSRFIssuer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCSRFIssuer creates an issuer. An empty secret is replaced by random bytes.
func NewCSRFIssuer(secret []byte, maxAge time.Duration) *CSRFIssuer {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		rand.Read(secret)
	}
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	return &CSRFIssuer{secret: secret, maxAge: maxAge, now: time.Now}
}

// GenerateToken creates a new token: random.timestamp.signature.
func (c *CSRFIssuer) GenerateToken() (string, error) {
	randomBytes := make([]byte, 24)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(randomBytes) + "." + strconv.FormatInt(c.now().Unix(), 10)
	return payload + "." + base64.RawURLEncoding.EncodeToString(c.sign([]byte(payload))), nil
}

// ValidateToken checks the signature and age of token.
func (c *CSRFIssuer) ValidateToken(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	i := strings.LastIndexByte(token, '.')
	if i < 0 {
		return ErrInvalidToken
	}
	payload, sigB64 := token[:i], token[i+1:]

	signature, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare(signature, c.sign([]byte(payload))) != 1 {
		return ErrInvalidSignature
	}

	_, tsStr, ok := strings.Cut(payload, ".")
	if !ok {
		return ErrInvalidToken
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return ErrInvalidToken
	}
	if c.now().Sub(time.Unix(ts, 0)) > c.maxAge {
		return ErrTokenExpired
	}
	return nil
}

func (c *CSRFIssuer) sign(data []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(data)
	return mac.Sum(nil)
}

// Issue sets a fresh XSRF-TOKEN cookie on w.
func (c *CSRFIssuer) Issue(w http.ResponseWriter) (string, error) {
	token, err := c.GenerateToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     XSRFCookie,
		Value:    url.QueryEscape(token),
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// Check validates a mutating request: the header must carry a valid token
// equal to the cookie. Safe methods always pass.
func (c *CSRFIssuer) Check(r *http.Request) error {
	if IsSafeMethod(r.Method) {
		return nil
	}
	header := r.Header.Get(XSRFHeader)
	if header == "" {
		return ErrMissingToken
	}
	cookie, err := r.Cookie(XSRFCookie)
	if err != nil {
		return ErrMissingToken
	}
	cookieToken, err := url.QueryUnescape(cookie.Value)
	if err != nil || subtle.ConstantTimeCompare([]byte(cookieToken), []byte(header)) != 1 {
		return ErrInvalidToken
	}
	return c.ValidateToken(header)
}

// Middleware rejects mutating requests that fail Check with status 419, the
// code Laravel uses for a CSRF mismatch.
func (c *CSRFIssuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := c.Check(r); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(419)
			fmt.Fprintf(w, `{"message":"CSRF token mismatch."}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsSafeMethod returns true for methods that never need a CSRF token.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
