package httpx

import (
	"net/http"

	"prysmi/internal/core"
	"prysmi/internal/edge"
	"prysmi/internal/http/handler"

	"github.com/go-chi/chi/v5"
)

// Deps — всё, что нужно маршрутизатору
type Deps struct {
	Transformer *edge.Transformer
	Metrics     http.Handler // nil — /metrics не публикуется
	Common      core.CommonOptions
}

// NewRouter создаёт chi-маршрутизатор: служебные маршруты + edge для всего остального
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	core.UseCommon(r, d.Common)

	// --- Healthcheck (для мониторинга) ---
	r.Get("/healthz", handler.Health)

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	// --- Сайт ---
	site := handler.Edge(d.Transformer)
	r.Handle("/*", site)

	return r
}
