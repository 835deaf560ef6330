// Package web — встроенный сайт по умолчанию (когда не задан ни ASSETS_DIR, ни ORIGIN_URL).
package web

import (
	"embed"
	"io/fs"
)

//go:embed public
var files embed.FS

// Site — содержимое public/ как корень
func Site() fs.FS {
	sub, err := fs.Sub(files, "public")
	if err != nil {
		// "public" встроен при сборке, ошибки здесь быть не может
		panic(err)
	}
	return sub
}
