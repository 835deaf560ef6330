package edge

import (
	"context"
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — счётчики edge. Нулевой *Metrics допустим: методы ничего не делают.
type Metrics struct {
	responses     *prometheus.CounterVec
	fetchErrors   prometheus.Counter
	rewriteErrors prometheus.Counter
	scripts       prometheus.Counter
}

// NewMetrics регистрирует счётчики в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edge",
			Name:      "responses_total",
			Help:      "Ответы, прошедшие через edge, по виду тела (html/other).",
		}, []string{"kind"}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edge",
			Name:      "fetch_errors_total",
			Help:      "Ошибки получения ответа из хранилища ассетов.",
		}),
		rewriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edge",
			Name:      "rewrite_errors_total",
			Help:      "Сбои потоковой перезаписи HTML.",
		}),
		scripts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edge",
			Name:      "scripts_stamped_total",
			Help:      "Теги <script>, получившие nonce.",
		}),
	}
	reg.MustRegister(m.responses, m.fetchErrors, m.rewriteErrors, m.scripts)
	return m
}

func (m *Metrics) response(kind string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(kind).Inc()
}

func (m *Metrics) fetchFailed() {
	if m == nil {
		return
	}
	m.fetchErrors.Inc()
}

// rewriteDone — RewriteDone для NewScriptNonceReader. Уход клиента сбоем не считаем.
func (m *Metrics) rewriteDone(stamped int, err error) {
	if m == nil {
		return
	}
	m.scripts.Add(float64(stamped))
	if err != nil && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, context.Canceled) {
		m.rewriteErrors.Inc()
	}
}
