package edge

import (
	"fmt"
	"net/http"

	"github.com/unrolled/secure"
)

const hstsMaxAge = 31536000 // один год

// SecurityHeaders — семь статических заголовков, одинаковых для любого ответа.
// HSTS, X-Frame-Options, X-Content-Type-Options, X-XSS-Protection и
// Permissions-Policy считает unrolled/secure; CORS и X-Robots-Tag — из Policy.
type SecurityHeaders struct {
	secure      *secure.Secure
	allowOrigin string
	robotsTag   string
}

func NewSecurityHeaders(p Policy) *SecurityHeaders {
	return &SecurityHeaders{
		secure: secure.New(secure.Options{
			STSSeconds:           hstsMaxAge,
			STSIncludeSubdomains: true,
			// TLS терминируется до edge, поэтому HSTS ставим всегда
			ForceSTSHeader:     true,
			FrameDeny:          true,
			ContentTypeNosniff: true,
			BrowserXssFilter:   true,
			PermissionsPolicy:  p.PermissionsPolicy,
		}),
		allowOrigin: p.AllowOrigin,
		robotsTag:   p.RobotsTag,
	}
}

// Apply перезаписывает (Set) заголовки в dst. dst — копия заголовков origin,
// сам ответ origin не трогаем.
func (s *SecurityHeaders) Apply(dst http.Header, r *http.Request) error {
	// ResponseWriter нужен secure только для редиректов и AllowedHosts — оба выключены
	computed, _, err := s.secure.ProcessNoModifyRequest(nil, r)
	if err != nil {
		return fmt.Errorf("заголовки безопасности: %w", err)
	}
	for name, values := range computed {
		dst.Del(name)
		for _, v := range values {
			dst.Add(name, v)
		}
	}
	dst.Set("Access-Control-Allow-Origin", s.allowOrigin)
	dst.Set("X-Robots-Tag", s.robotsTag)
	return nil
}
