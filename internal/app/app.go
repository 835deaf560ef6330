package app

// internal/app/app.go
import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"prysmi/internal/assets"
	"prysmi/internal/core"
	"prysmi/internal/edge"
	httpx "prysmi/internal/http"
	"prysmi/web"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New — главный конструктор: хранилище ассетов + Transformer + маршрутизатор
func New(cfg core.Config) (http.Handler, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := edge.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	var (
		opts    []edge.Option
		metrics http.Handler
	)
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, edge.WithMetrics(edge.NewMetrics(reg)))
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	return httpx.NewRouter(httpx.Deps{
		Transformer: edge.NewTransformer(store, policy, opts...),
		Metrics:     metrics,
		Common: core.CommonOptions{
			TrustedProxies: cfg.TrustedProxies,
			Compress:       cfg.Compress,
		},
	}), nil
}

// newStore выбирает источник ассетов: ORIGIN_URL → ASSETS_DIR → встроенный сайт
func newStore(cfg core.Config) (edge.Fetcher, error) {
	switch {
	case cfg.OriginURL != "":
		base, err := url.Parse(cfg.OriginURL)
		if err != nil {
			return nil, fmt.Errorf("ORIGIN_URL: %w", err)
		}
		core.LogInfo("Ассеты: upstream origin", map[string]interface{}{"origin": base.Redacted()})
		return assets.NewOrigin(base, assets.NewOriginClient(cfg.OriginTimeout))

	case cfg.AssetsDir != "":
		info, err := os.Stat(cfg.AssetsDir)
		if err != nil {
			return nil, fmt.Errorf("ASSETS_DIR: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("ASSETS_DIR: %s не каталог", cfg.AssetsDir)
		}
		core.LogInfo("Ассеты: каталог", map[string]interface{}{"dir": cfg.AssetsDir})
		return assets.NewFS(os.DirFS(cfg.AssetsDir)), nil

	default:
		core.LogInfo("Ассеты: встроенный сайт", nil)
		return assets.NewFS(web.Site()), nil
	}
}
