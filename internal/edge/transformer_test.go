package edge

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"prysmi/internal/assets"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore отдаёт заранее заданный ответ и запоминает запросы
type stubStore struct {
	status  int
	header  http.Header
	body    []byte
	err     error
	nilBody bool

	calls []*http.Request
}

func (s *stubStore) Fetch(r *http.Request) (*assets.Response, error) {
	s.calls = append(s.calls, r)
	if s.err != nil {
		return nil, s.err
	}
	resp := &assets.Response{Status: s.status, Header: s.header}
	if !s.nilBody {
		resp.Body = io.NopCloser(bytes.NewReader(s.body))
	}
	return resp, nil
}

func htmlStore(status int, body string) *stubStore {
	h := make(http.Header)
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", "999")
	h.Set("Cache-Control", "public, max-age=0, must-revalidate")
	return &stubStore{status: status, header: h, body: []byte(body)}
}

var nonceInCSP = regexp.MustCompile(`'nonce-([^']+)'`)

func readBody(t *testing.T, resp *assets.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestTransformHTML(t *testing.T) {
	store := htmlStore(http.StatusOK, `<html><script src="a.js"></script></html>`)
	tr := NewTransformer(store, DefaultPolicy())
	req := httptest.NewRequest(http.MethodGet, "http://prysmi.com/index.html", nil)

	resp, err := tr.Transform(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assertStaticHeaders(t, resp.Header)

	csp := resp.Header.Get("Content-Security-Policy")
	m := nonceInCSP.FindStringSubmatch(csp)
	require.Len(t, m, 2, csp)
	nonce := m[1]
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`, nonce)
	assert.Equal(t, DefaultPolicy().CSP(nonce), csp)

	assert.Equal(t, `<html><script src="a.js" nonce="`+nonce+`"></script></html>`, readBody(t, resp))
	assert.Empty(t, resp.Header.Get("Content-Length"))
	assert.Equal(t, "public, max-age=0, must-revalidate", resp.Header.Get("Cache-Control"))
}

func TestTransformHTMLSingleNoncePerResponse(t *testing.T) {
	body := `<head><script>a()</script><script src="/b.js"></script></head><body><script type="module">c()</script></body>`
	tr := NewTransformer(htmlStore(http.StatusOK, body), DefaultPolicy())

	resp, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	nonce := nonceInCSP.FindStringSubmatch(resp.Header.Get("Content-Security-Policy"))[1]
	out := readBody(t, resp)

	assert.Equal(t, 3, strings.Count(out, `nonce="`))
	assert.Equal(t, 3, strings.Count(out, `nonce="`+nonce+`"`))
}

func TestTransformNonHTMLPassesThrough(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, '<', 's', 'c', 'r', 'i', 'p', 't', '>'}
	h := make(http.Header)
	h.Set("Content-Type", "image/png")
	h.Set("Content-Length", "20")
	store := &stubStore{status: http.StatusOK, header: h, body: png}
	tr := NewTransformer(store, DefaultPolicy())

	resp, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/logo.png", nil))
	require.NoError(t, err)

	assertStaticHeaders(t, resp.Header)
	assert.Empty(t, resp.Header.Values("Content-Security-Policy"))
	assert.Equal(t, "20", resp.Header.Get("Content-Length"))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, string(png), readBody(t, resp))
}

func TestTransformNonHTMLHeadersAreStable(t *testing.T) {
	h := make(http.Header)
	h.Set("Content-Type", "text/css")
	tr := NewTransformer(&stubStore{status: http.StatusOK, header: h, body: []byte("p{}")}, DefaultPolicy())

	first, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/style.css", nil))
	require.NoError(t, err)
	second, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/style.css", nil))
	require.NoError(t, err)

	assert.Equal(t, first.Header, second.Header)
}

func TestTransformDoesNotMutateOriginHeaders(t *testing.T) {
	store := htmlStore(http.StatusOK, "<p>x</p>")
	store.header.Set("X-Frame-Options", "SAMEORIGIN")
	before := store.header.Clone()

	tr := NewTransformer(store, DefaultPolicy())
	resp, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	readBody(t, resp)

	assert.Equal(t, before, store.header)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestTransformPassesRequestVerbatim(t *testing.T) {
	store := htmlStore(http.StatusOK, "")
	tr := NewTransformer(store, DefaultPolicy())
	req := httptest.NewRequest(http.MethodPost, "/contact?x=1", strings.NewReader("a=b"))
	req.Header.Set("X-Custom", "1")

	resp, err := tr.Transform(req)
	require.NoError(t, err)
	readBody(t, resp)

	require.Len(t, store.calls, 1)
	assert.Same(t, req, store.calls[0])
}

func TestTransformErrorStatusPassesThrough(t *testing.T) {
	tr := NewTransformer(htmlStore(http.StatusNotFound, `<h1>404</h1><script src="/s.js"></script>`), DefaultPolicy())

	resp, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.Status)
	assertStaticHeaders(t, resp.Header)
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.Contains(t, readBody(t, resp), `<script src="/s.js" nonce="`)
}

func TestTransformFetchErrorPropagates(t *testing.T) {
	errUpstream := errors.New("asset store unreachable")
	store := &stubStore{err: errUpstream}
	tr := NewTransformer(store, DefaultPolicy())

	resp, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, errUpstream)
	assert.Len(t, store.calls, 1, "no retries")
}

func TestTransformMissingBody(t *testing.T) {
	store := htmlStore(http.StatusOK, "")
	store.nilBody = true

	_, err := NewTransformer(store, DefaultPolicy()).Transform(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoBody)
}

func TestTransformNonceFailure(t *testing.T) {
	errRand := errors.New("entropy exhausted")
	tr := NewTransformer(htmlStore(http.StatusOK, "<p>x</p>"), DefaultPolicy(),
		WithNonceFunc(func() (string, error) { return "", errRand }))

	_, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, errRand)
}

func TestTransformNoncesAreUnique(t *testing.T) {
	tr := NewTransformer(htmlStore(http.StatusOK, "<script></script>"), DefaultPolicy())

	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		resp, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		nonce := nonceInCSP.FindStringSubmatch(resp.Header.Get("Content-Security-Policy"))[1]
		assert.Equal(t, `<script nonce="`+nonce+`"></script>`, readBody(t, resp))
		seen[nonce] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestTransformFixedNonce(t *testing.T) {
	tr := NewTransformer(htmlStore(http.StatusOK, `<html><script src="a.js"></script></html>`), DefaultPolicy(),
		WithNonceFunc(func() (string, error) { return "X", nil }))

	resp, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/index.html", nil))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Security-Policy"),
		"default-src 'self'; script-src 'self' 'nonce-X' 'strict-dynamic' 'unsafe-inline' https://prysmi.com/cdn-cgi/scripts/5c5dd728/cloudflare-static/email-decode.min.js; "))
	assert.Equal(t, `<html><script src="a.js" nonce="X"></script></html>`, readBody(t, resp))
}

func TestIsHTML(t *testing.T) {
	for ct, want := range map[string]bool{
		"text/html":                true,
		"text/html; charset=utf-8": true,
		"TEXT/HTML":                true,
		"application/xhtml+xml":    false,
		"text/plain":               false,
		"":                         false,
		"application/json":         false,
	} {
		h := make(http.Header)
		if ct != "" {
			h.Set("Content-Type", ct)
		}
		assert.Equal(t, want, IsHTML(h), ct)
	}
}

func TestTransformMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	tr := NewTransformer(htmlStore(http.StatusOK, "<script></script><script></script>"), DefaultPolicy(), WithMetrics(m))
	resp, err := tr.Transform(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	readBody(t, resp)

	h := make(http.Header)
	h.Set("Content-Type", "image/png")
	tr = NewTransformer(&stubStore{status: http.StatusOK, header: h}, DefaultPolicy(), WithMetrics(m))
	resp, err = tr.Transform(httptest.NewRequest(http.MethodGet, "/a.png", nil))
	require.NoError(t, err)
	readBody(t, resp)

	tr = NewTransformer(&stubStore{err: errors.New("down")}, DefaultPolicy(), WithMetrics(m))
	_, err = tr.Transform(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("html")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.scripts))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rewriteErrors))
}
