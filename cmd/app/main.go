package main

//main.go
import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prysmi/internal/app"
	"prysmi/internal/core"
)

func main() {
	// 1) Конфиг
	config, err := core.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// 2) Логи
	if err := core.InitDailyLog(config.LogDir, config.Env); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логов: %v\n", err)
		os.Exit(1)
	}

	// 3) Контекст для фоновых задач (ротация логов)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4) Ежедневная ротация логов (только для файловых логов)
	if config.LogDir != "" {
		startLogRotation(ctx, config)
	}

	// 5) Хранилище ассетов + edge + маршруты
	handler, err := app.New(config)
	if err != nil {
		core.LogError("Ошибка инициализации приложения", map[string]interface{}{"error": err.Error()})
		core.Close()
		os.Exit(1)
	}

	// 6) HTTP-сервер с таймаутами
	srv := app.Server(config, handler)

	// 7) Перехват сигналов
	sigs, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 8) Запуск сервера
	runServer(srv, config)

	// 9) Ожидаем сигнал завершения
	waitShutdown(sigs, srv, config)

	// 10) Закрытие ресурсов
	core.Close()
}

// startLogRotation — новый файл раз в сутки
func startLogRotation(ctx context.Context, cfg core.Config) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := core.InitDailyLog(cfg.LogDir, cfg.Env); err != nil {
					fmt.Fprintf(os.Stderr, "Ошибка ротации логов: %v\n", err)
				}
			}
		}
	}()
}

// gracefulShutdown — корректное завершение
func gracefulShutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// runServer — запуск (ListenAndServe) в горутине
func runServer(srv *http.Server, cfg core.Config) {
	go func() {
		core.LogInfo("http: сервер запущен", map[string]interface{}{"addr": cfg.Addr, "env": cfg.Env, "app": cfg.AppName})
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			core.LogError("Ошибка работы сервера", map[string]interface{}{"error": err.Error()})
			core.Close()
			os.Exit(1)
		}
	}()
}

// waitShutdown — ожидание сигналов и shutdown
func waitShutdown(sigs context.Context, srv *http.Server, cfg core.Config) {
	<-sigs.Done()
	core.LogInfo("http: начат процесс завершения", nil)
	if err := gracefulShutdown(srv, cfg.ShutdownTimeout); err != nil {
		core.LogError("Ошибка завершения сервера", map[string]interface{}{"error": err.Error()})
	} else {
		core.LogInfo("http: завершение выполнено", nil)
	}
}
