package handler

// edge.go
import (
	"io"
	"net/http"

	"prysmi/internal/core"
	"prysmi/internal/edge"
)

// Edge — все пути сайта: ответ хранилища ассетов, пропущенный через Transformer.
// Статус и тело origin (включая 404) отдаются как есть, меняются только заголовки.
func Edge(t *edge.Transformer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := t.Transform(r)
		if err != nil {
			if r.Context().Err() != nil {
				// Клиент ушёл — отвечать некому
				core.LogWarn("Запрос отменён до ответа хранилища", map[string]interface{}{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
				return
			}
			// Без поддельного 200: сообщаем об ошибке upstream, заголовки безопасности сохраняем
			if herr := t.Headers().Apply(w.Header(), r); herr != nil {
				core.LogError("Не удалось выставить заголовки безопасности", map[string]interface{}{"error": herr.Error()})
			}
			core.Fail(w, r, core.BadGateway("Хранилище ассетов не вернуло ответ", err))
			return
		}
		defer resp.Body.Close()

		dst := w.Header()
		for name, values := range resp.Header {
			dst[name] = values
		}
		w.WriteHeader(resp.Status)

		if _, err := io.Copy(w, resp.Body); err != nil {
			if r.Context().Err() != nil {
				return
			}
			core.LogError("Сбой потоковой передачи ответа", map[string]interface{}{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			// Заголовки уже ушли: рвём соединение, чтобы обрезанное тело не выглядело целым
			panic(http.ErrAbortHandler)
		}
	})
}
