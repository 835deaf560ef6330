package assets

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Origin пересылает запрос на upstream-origin и возвращает его ответ как есть:
// любой статус (404, 500 …) проходит насквозь, ошибка транспорта — ошибкой.
type Origin struct {
	base   *url.URL
	client *http.Client
}

// NewOriginClient — клиент без следования редиректам: 3xx origin'а уходят клиенту
func NewOriginClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewOrigin — хранилище поверх base (схема+хост, опционально префикс пути)
func NewOrigin(base *url.URL, client *http.Client) (*Origin, error) {
	if base == nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.New("origin: нужен абсолютный URL")
	}
	if client == nil {
		client = NewOriginClient(0)
	}
	return &Origin{base: base, client: client}, nil
}

// Fetch: метод, заголовки и тело уходят без изменений; меняется только адрес.
// Accept-Encoding согласует сам транспорт, чтобы тело пришло распакованным.
func (o *Origin) Fetch(r *http.Request) (*Response, error) {
	out := r.Clone(r.Context())
	out.RequestURI = ""
	out.Host = ""
	out.URL = o.target(r.URL)
	out.Header.Del("Accept-Encoding")
	removeHopHeaders(out.Header)

	resp, err := o.client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("origin %s %s: %w", r.Method, out.URL.Redacted(), err)
	}

	h := resp.Header.Clone()
	removeHopHeaders(h)
	return &Response{Status: resp.StatusCode, Header: h, Body: resp.Body}, nil
}

func (o *Origin) target(in *url.URL) *url.URL {
	u := *o.base
	u.Path = strings.TrimSuffix(o.base.Path, "/") + "/" + strings.TrimPrefix(in.Path, "/")
	u.RawPath = ""
	u.RawQuery = in.RawQuery
	u.Fragment = ""
	return &u
}
