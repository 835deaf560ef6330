package core

// common.go
import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CommonOptions — переключатели общего middleware-стека
type CommonOptions struct {
	TrustedProxies []string // пусто — проверка прокси выключена
	Compress       bool
}

// UseCommon подключает базовые (общие) middleware для всего приложения.
func UseCommon(r *chi.Mux, opts CommonOptions) {
	// --- Идентификатор запроса ---
	r.Use(middleware.RequestID)

	// --- Доверенные прокси ---
	// Проверяем непосредственного отправителя до того, как RealIP перепишет RemoteAddr.
	if len(opts.TrustedProxies) > 0 {
		r.Use(TrustedProxy(opts.TrustedProxies))
	}

	// --- Определение реального IP клиента ---
	r.Use(middleware.RealIP)

	// --- Логирование (zerolog) ---
	r.Use(AccessLog)

	// --- Восстановление после паники ---
	// http.ErrAbortHandler Recoverer пробрасывает дальше — соединение рвётся.
	r.Use(middleware.Recoverer)

	// --- Сжатие ---
	if opts.Compress {
		r.Use(middleware.Compress(5))
	}
}

// AccessLog пишет одну запись на запрос: метод, путь, статус, размер, длительность
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			LogInfo("http", map[string]interface{}{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote":      r.RemoteAddr,
			})
		}()

		next.ServeHTTP(ww, r)
	})
}
