package edge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"prysmi/internal/assets"
)

// ErrNoBody — хранилище вернуло ответ без потока тела
var ErrNoBody = errors.New("edge: ответ хранилища без тела")

// Fetcher — хранилище ассетов: по запросу отдаёт ответ (в том числе 404/5xx)
// или ошибку, если ответа нет вовсе
type Fetcher interface {
	Fetch(r *http.Request) (*assets.Response, error)
}

// Transformer получает ответ хранилища и строит из него новый: статические
// заголовки безопасности всегда, CSP с nonce и перезапись <script> — только для HTML.
// Общего изменяемого состояния нет, один Transformer обслуживает все запросы.
type Transformer struct {
	store    Fetcher
	policy   Policy
	headers  *SecurityHeaders
	metrics  *Metrics
	newNonce func() (string, error)
}

type Option func(*Transformer)

// WithMetrics подключает счётчики Prometheus
func WithMetrics(m *Metrics) Option {
	return func(t *Transformer) { t.metrics = m }
}

// WithNonceFunc подменяет генератор nonce
func WithNonceFunc(fn func() (string, error)) Option {
	return func(t *Transformer) { t.newNonce = fn }
}

func NewTransformer(store Fetcher, policy Policy, opts ...Option) *Transformer {
	t := &Transformer{
		store:    store,
		policy:   policy,
		headers:  NewSecurityHeaders(policy),
		newNonce: NewNonce,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Headers — статические заголовки; нужны и для ответа об ошибке
func (t *Transformer) Headers() *SecurityHeaders {
	return t.headers
}

// Transform делает ровно один запрос к хранилищу. Ошибка хранилища
// возвращается как есть (обёрнутой), ответ origin не изменяется: копируются
// заголовки, статус и поток тела переходят в новый ответ.
func (t *Transformer) Transform(r *http.Request) (*assets.Response, error) {
	origin, err := t.store.Fetch(r)
	if err != nil {
		t.metrics.fetchFailed()
		return nil, fmt.Errorf("fetch %s: %w", r.URL.Path, err)
	}
	if origin == nil || origin.Body == nil {
		t.metrics.fetchFailed()
		return nil, ErrNoBody
	}

	header := origin.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	resp := &assets.Response{Status: origin.Status, Header: header, Body: origin.Body}

	if err := t.headers.Apply(resp.Header, r); err != nil {
		_ = origin.Body.Close()
		return nil, err
	}

	if !IsHTML(resp.Header) {
		t.metrics.response("other")
		return resp, nil
	}

	nonce, err := t.newNonce()
	if err != nil {
		_ = origin.Body.Close()
		return nil, err
	}

	resp.Header.Set("Content-Security-Policy", t.policy.CSP(nonce))
	// Длина тела меняется
	resp.Header.Del("Content-Length")
	resp.Body = NewScriptNonceReader(r.Context(), origin.Body, nonce, t.metrics.rewriteDone)

	t.metrics.response("html")
	return resp, nil
}

// IsHTML — Content-Type содержит text/html
func IsHTML(h http.Header) bool {
	return strings.Contains(strings.ToLower(h.Get("Content-Type")), "text/html")
}
