package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"testing/fstest"

	"prysmi/internal/assets"
	"prysmi/internal/core"
	"prysmi/internal/edge"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, metrics bool, common core.CommonOptions) http.Handler {
	t.Helper()
	store := assets.NewFS(fstest.MapFS{
		"index.html": {Data: []byte(`<!DOCTYPE html><html><body><script src="/script.js" defer></script><script>init()</script></body></html>`)},
		"404.html":   {Data: []byte(`<h1>404</h1><script src="/script.js"></script>`)},
		"script.js":  {Data: []byte(`document.addEventListener('DOMContentLoaded', () => {});`)},
	})

	deps := Deps{Common: common}
	var opts []edge.Option
	if metrics {
		reg := prometheus.NewRegistry()
		opts = append(opts, edge.WithMetrics(edge.NewMetrics(reg)))
		deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	deps.Transformer = edge.NewTransformer(store, edge.DefaultPolicy(), opts...)
	return NewRouter(deps)
}

func get(t *testing.T, h http.Handler, target string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	resp := rec.Result()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

var nonceRe = regexp.MustCompile(`'nonce-([0-9a-f-]+)'`)

func TestRouterServesSite(t *testing.T) {
	h := newTestRouter(t, false, core.CommonOptions{})

	resp, body := get(t, h, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := nonceRe.FindStringSubmatch(resp.Header.Get("Content-Security-Policy"))
	require.Len(t, m, 2)
	assert.Equal(t,
		`<!DOCTYPE html><html><body><script src="/script.js" defer nonce="`+m[1]+`"></script><script nonce="`+m[1]+`">init()</script></body></html>`,
		body)

	resp, body = get(t, h, "/script.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Content-Security-Policy"))
	assert.Equal(t, "1; mode=block", resp.Header.Get("X-XSS-Protection"))
	assert.Equal(t, `document.addEventListener('DOMContentLoaded', () => {});`, body)
}

func TestRouterNotFoundKeepsStatus(t *testing.T) {
	resp, body := get(t, newTestRouter(t, false, core.CommonOptions{}), "/nope")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.Regexp(t, `^<h1>404</h1><script src="/script.js" nonce="[0-9a-f-]+"></script>$`, body)
}

func TestRouterHealthz(t *testing.T) {
	resp, body := get(t, newTestRouter(t, false, core.CommonOptions{}), "/healthz")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestRouterMetrics(t *testing.T) {
	h := newTestRouter(t, true, core.CommonOptions{})
	get(t, h, "/")

	resp, body := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `edge_responses_total{kind="html"} 1`)
	assert.Contains(t, body, `edge_scripts_stamped_total 2`)
}

func TestRouterMetricsDisabled(t *testing.T) {
	resp, _ := get(t, newTestRouter(t, false, core.CommonOptions{}), "/metrics")

	// без метрик путь уходит в хранилище ассетов
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouterCompression(t *testing.T) {
	h := newTestRouter(t, false, core.CommonOptions{Compress: true})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}
