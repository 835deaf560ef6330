package handler

import (
	"net/http"

	"prysmi/internal/core"
)

// Health — healthcheck для балансировщика
func Health(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
