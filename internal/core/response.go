package core

// response.go
import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ProblemDetail — RFC 7807
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
	Code     string `json:"code"`
}

// JSON — просто отправка
func JSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, "application/json; charset=utf-8", v)
}

// Fail — ошибка с логированием, ответ в формате application/problem+json.
// Заголовки, уже выставленные в w (например, заголовки безопасности), сохраняются.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	ae := From(err)
	if ae == nil {
		ae = Internal("внутренняя ошибка", nil)
	}

	reqID := middleware.GetReqID(r.Context())
	if reqID == "" {
		reqID = r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "n/a"
		}
	}

	fields := map[string]interface{}{
		"request_id": reqID,
		"path":       r.URL.Path,
		"code":       ae.Code,
		"status":     ae.Status,
		"message":    ae.Message,
	}
	if ae.Err != nil {
		fields["error"] = ae.Err.Error()
	}
	LogError("Ошибка запроса", fields)

	problem := ProblemDetail{
		Type:     "/errors/" + ae.Code,
		Title:    http.StatusText(ae.Status),
		Status:   ae.Status,
		Detail:   ae.Message,
		Instance: "/errors/" + ae.Code,
		Code:     ae.Code,
	}

	// Длина и тип тела origin-ответа к problem-ответу не относятся
	w.Header().Del("Content-Length")
	w.Header().Del("Content-Encoding")
	writeJSON(w, ae.Status, "application/problem+json", problem)
}

func writeJSON(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
