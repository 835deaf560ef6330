package core

import (
	"net"
	"net/http"
	"strings"
)

// TrustedProxy валидирует, что запрос пришёл от доверенного прокси (CDN/балансировщик перед edge),
// и выставляет схему из X-Forwarded-Proto. Должен стоять до middleware.RealIP.
func TrustedProxy(trustedIPs []string) func(http.Handler) http.Handler {
	trusted := parseTrusted(trustedIPs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil || clientIP == "" {
				Fail(w, r, BadRequest("Неверный адрес клиента", err))
				return
			}

			ip := net.ParseIP(clientIP)
			if ip == nil {
				Fail(w, r, BadRequest("Неверный IP", nil))
				return
			}

			if !isTrusted(trusted, ip) {
				LogWarn("Запрос не от доверенного прокси", map[string]interface{}{"remote": clientIP})
				Fail(w, r, Forbidden("Недоверенный прокси"))
				return
			}

			proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")))
			if proto == "https" {
				r.URL.Scheme = "https"
			} else {
				r.URL.Scheme = "http"
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseTrusted(trustedIPs []string) []*net.IPNet {
	trusted := make([]*net.IPNet, 0, len(trustedIPs))
	for _, ipStr := range trustedIPs {
		_, ipNet, err := net.ParseCIDR(ipStr)
		if err != nil {
			// Для одиночных IP
			ip := net.ParseIP(ipStr)
			if ip != nil {
				if v4 := ip.To4(); v4 != nil {
					ip = v4
				}
				ipNet = &net.IPNet{IP: ip, Mask: net.CIDRMask(8*len(ip), 8*len(ip))}
			}
		}
		if ipNet != nil {
			trusted = append(trusted, ipNet)
		}
	}
	return trusted
}

func isTrusted(trusted []*net.IPNet, ip net.IP) bool {
	for _, ipNet := range trusted {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}
