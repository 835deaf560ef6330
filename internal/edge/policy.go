// Package edge — преобразование ответов на краю: заголовки безопасности,
// CSP с nonce на запрос и проставление nonce во все <script>.
package edge

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Policy — статическая конфигурация заголовков и CSP (не зависит от запроса)
type Policy struct {
	AllowOrigin       string   `yaml:"allow_origin" validate:"required,url"`
	RobotsTag         string   `yaml:"robots_tag" validate:"required"`
	PermissionsPolicy string   `yaml:"permissions_policy" validate:"required"`
	TrustedScriptURL  string   `yaml:"trusted_script_url" validate:"required,url"`
	StyleHash         string   `yaml:"style_hash" validate:"required,startswith=sha256-|startswith=sha384-|startswith=sha512-"`
	StyleSrc          []string `yaml:"style_src" validate:"min=1"`
	FontSrc           []string `yaml:"font_src" validate:"min=1"`
	ImgSrc            []string `yaml:"img_src" validate:"min=1"`
	FrameSrc          []string `yaml:"frame_src" validate:"min=1"`
	ConnectSrc        []string `yaml:"connect_src" validate:"min=1"`
}

// DefaultPolicy — боевые значения prysmi.com
func DefaultPolicy() Policy {
	return Policy{
		AllowOrigin:       "https://prysmi.com",
		RobotsTag:         "all",
		PermissionsPolicy: "camera=(), geolocation=(), microphone=()",
		TrustedScriptURL:  "https://prysmi.com/cdn-cgi/scripts/5c5dd728/cloudflare-static/email-decode.min.js",
		StyleHash:         "sha256-Scgmef+PrV+zeVvlZq4r84BiJFFDVqo62lDGXLdgghY=",
		StyleSrc:          []string{"'self'", "fonts.googleapis.com"},
		FontSrc:           []string{"'self'", "fonts.gstatic.com"},
		ImgSrc:            []string{"'self'", "data:", "raw.githubusercontent.com"},
		FrameSrc:          []string{"'self'", "https://www.googletagmanager.com"},
		ConnectSrc:        []string{"'self'", "https://www.google-analytics.com"},
	}
}

var validate = validator.New()

// Validate проверяет обязательные поля политики
func (p Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("политика: %w", err)
	}
	return nil
}

// LoadPolicy читает YAML поверх DefaultPolicy: отсутствующие в файле поля
// остаются боевыми. Пустой path — просто DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("чтение политики %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("разбор политики %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// CSP собирает Content-Security-Policy для одного ответа. Каждая директива
// заканчивается ';', директивы разделены пробелом.
func (p Policy) CSP(nonce string) string {
	directives := []string{
		"default-src 'self';",
		"script-src 'self' 'nonce-" + nonce + "' 'strict-dynamic' 'unsafe-inline' " + p.TrustedScriptURL + ";",
		"style-src " + strings.Join(p.StyleSrc, " ") + " '" + p.StyleHash + "';",
		"font-src " + strings.Join(p.FontSrc, " ") + ";",
		"img-src " + strings.Join(p.ImgSrc, " ") + ";",
		"frame-src " + strings.Join(p.FrameSrc, " ") + ";",
		"connect-src " + strings.Join(p.ConnectSrc, " ") + ";",
		"object-src 'none';",
		"base-uri 'self';",
	}
	return strings.Join(directives, " ")
}
