package core

//errors.go
import (
	"errors"
	"fmt"
	"net/http"
)

// AppError представляет ошибку приложения с кодом, HTTP-статусом и дополнительной информацией
type AppError struct {
	Code    string // Машинный код ошибки (например, "bad_gateway", "not_found")
	Status  int    // HTTP-статус для ответа клиенту
	Message string // Сообщение для клиента
	Err     error  // Внутренняя ошибка (если есть)
}

// Error возвращает строковое представление ошибки
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Code, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Unwrap возвращает вложенную ошибку для обработки цепочки ошибок
func (e *AppError) Unwrap() error {
	return e.Err
}

// Internal создаёт ошибку для внутренней серверной ошибки (HTTP 500)
func Internal(msg string, err error) *AppError {
	return &AppError{Code: "internal", Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// BadGateway — хранилище ассетов/origin не смогло отдать ответ (HTTP 502)
func BadGateway(msg string, err error) *AppError {
	return &AppError{Code: "bad_gateway", Status: http.StatusBadGateway, Message: msg, Err: err}
}

// NotFound (HTTP 404)
func NotFound(msg string) *AppError {
	return &AppError{Code: "not_found", Status: http.StatusNotFound, Message: msg}
}

// Forbidden (HTTP 403)
func Forbidden(msg string) *AppError {
	return &AppError{Code: "forbidden", Status: http.StatusForbidden, Message: msg}
}

// BadRequest (HTTP 400)
func BadRequest(msg string, err error) *AppError {
	return &AppError{Code: "bad_request", Status: http.StatusBadRequest, Message: msg, Err: err}
}

// From преобразует ошибку в AppError, возвращая Internal при неизвестной ошибке
func From(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	if err == nil {
		return nil
	}
	return Internal("внутренняя ошибка", err)
}
