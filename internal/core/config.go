package core

//config.go

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config определяет настройки edge-сервера
type Config struct {
	AppName           string        `validate:"required"`                  // Имя приложения
	Addr              string        `validate:"required"`                  // Адрес HTTP-сервера (например, ":8080")
	Env               string        `validate:"oneof=dev staging prod"`    // Среда выполнения
	AssetsDir         string        // Каталог статики; пусто — встроенный сайт
	OriginURL         string        `validate:"omitempty,url"`             // Upstream origin; если задан, важнее AssetsDir
	OriginTimeout     time.Duration `validate:"gte=0"`                     // Таймаут запроса к origin (0 — без таймаута)
	PolicyFile        string        // YAML с переопределениями CSP/CORS
	LogDir            string        // Каталог логов; пусто — stdout
	Metrics           bool          // Включает /metrics
	Compress          bool          // gzip-сжатие ответов
	TrustedProxies    []string      `validate:"dive,cidr|ip"`              // Доверенные прокси (IP или CIDR)
	ShutdownTimeout   time.Duration `validate:"gt=0"`                      // Таймаут для graceful shutdown
	ReadHeaderTimeout time.Duration `validate:"gt=0"`                      // Таймаут чтения заголовков HTTP-запроса
	ReadTimeout       time.Duration `validate:"gte=0"`                     // Таймаут чтения HTTP-запроса
	WriteTimeout      time.Duration `validate:"gte=0"`                     // Таймаут записи HTTP-ответа (0 — для больших потоков)
	IdleTimeout       time.Duration `validate:"gte=0"`                     // Таймаут простоя соединения
}

var validate = validator.New()

// Load загружает .env (если есть), затем конфигурацию из переменных окружения
// с значениями по умолчанию, и валидирует результат
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("чтение .env: %w", err)
	}

	cfg := Config{
		AppName:           getEnv("APP_NAME", "prysmi"),
		Addr:              getEnv("HTTP_ADDR", ":8080"),
		Env:               getEnv("APP_ENV", "dev"),
		AssetsDir:         getEnv("ASSETS_DIR", ""),
		OriginURL:         getEnv("ORIGIN_URL", ""),
		OriginTimeout:     getEnvDuration("ORIGIN_TIMEOUT", 0),
		PolicyFile:        getEnv("POLICY_FILE", ""),
		LogDir:            getEnv("LOG_DIR", ""),
		Metrics:           getEnvBool("METRICS", false),
		Compress:          getEnvBool("COMPRESS", true),
		TrustedProxies:    getEnvList("TRUSTED_PROXIES"),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ReadHeaderTimeout: getEnvDuration("READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       getEnvDuration("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:      getEnvDuration("WRITE_TIMEOUT", 0),
		IdleTimeout:       getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("неверная конфигурация: %w", err)
	}

	// В продакшене нужен явный источник ассетов
	if cfg.Env == "prod" && cfg.AssetsDir == "" && cfg.OriginURL == "" {
		LogWarn("В продакшене не задан ни ASSETS_DIR, ни ORIGIN_URL — отдаём встроенный сайт", nil)
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

// getEnvDuration возвращает значение длительности из переменной окружения или значение по умолчанию
func getEnvDuration(key string, def time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		LogError("Неверный формат длительности", map[string]interface{}{"key": key, "value": val, "error": err.Error()})
		return def
	}
	return d
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// getEnvList — список через запятую, пустые элементы отбрасываются
func getEnvList(key string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
