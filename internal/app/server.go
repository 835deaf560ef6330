package app

import (
	"net/http"

	"prysmi/internal/core"
)

// Server — http.Server с таймаутами из конфигурации.
// WriteTimeout по умолчанию 0: тела отдаются потоком и могут быть большими.
func Server(cfg core.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
}
