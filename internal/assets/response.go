// Package assets отдаёт статические ответы для edge: из fs.FS (встроенный
// сайт или каталог) или из upstream origin по HTTP.
package assets

import (
	"io"
	"net/http"
	"strings"
)

// Response — ответ хранилища ассетов: статус, заголовки и поток тела.
// Body всегда не nil; закрывает его получатель.
type Response struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// textResponse — короткий служебный ответ (404 без страницы, 405)
func textResponse(status int, msg string) *Response {
	h := make(http.Header)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	return &Response{
		Status: status,
		Header: h,
		Body:   io.NopCloser(strings.NewReader(msg + "\n")),
	}
}

// hopHeaders — hop-by-hop заголовки, которые не проксируются (RFC 9110, 7.6.1)
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopHeaders(h http.Header) {
	for _, f := range h.Values("Connection") {
		for _, sf := range strings.Split(f, ",") {
			if sf = strings.TrimSpace(sf); sf != "" {
				h.Del(sf)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
