package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"golang.org/x/crypto/hkdf"
)

// CSRF header and form field names
const (
	CSRFHeader = "X-CSRF-Token"
	CSRFField  = "csrf_token"
)

// CSRF issues and verifies tokens bound to a session id
type CSRF struct {
	secret []byte
}

// NewCSRF creates a CSRF guard whose key is derived from the session secret
func NewCSRF(secret string) *CSRF {
	key := make([]byte, sha256.Size)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("pantrypilot csrf"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		panic("hkdf: " + err.Error())
	}
	return &CSRF{secret: key}
}

// Token returns the token for sessionID
func (c *CSRF) Token(sessionID string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Valid reports whether token belongs to sessionID
func (c *CSRF) Valid(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	return hmac.Equal([]byte(c.Token(sessionID)), []byte(token))
}

// RequestToken extracts the token from the header HTMX sends or the form field
func RequestToken(r *http.Request) string {
	if token := r.Header.Get(CSRFHeader); token != "" {
		return token
	}
	return r.PostFormValue(CSRFField)
}

// SafeMethod reports whether method cannot change state
func SafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
