package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// IPHasher produces the HMAC of a client IP. The raw IP never reaches
// storage; an empty secret disables hashing entirely.
type IPHasher struct {
	secret []byte
}

func NewIPHasher(secret string) *IPHasher {
	return &IPHasher{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (h *IPHasher) Enabled() bool { return len(h.secret) > 0 }

// HashRequest returns the HMAC-SHA256 of the request's client IP, or the
// empty string when disabled.
func (h *IPHasher) HashRequest(r *http.Request) string {
	if !h.Enabled() {
		return ""
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(ClientIP(r)))
	return hex.EncodeToString(mac.Sum(nil))
}

// ClientIP extracts the client IP from the request, honoring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
