package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger — основной журнал и отдельный журнал ошибок.
// Файлы == nil, когда логи пишутся в консоль.
type Logger struct {
	mainLogger  zerolog.Logger
	errorLogger zerolog.Logger
	mainFile    *os.File
	errorFile   *os.File
}

var (
	logMu        sync.Mutex
	globalLogger *Logger
	cleanupOnce  sync.Once
)

// maxLogAgeDays — сколько дней храним ежедневные лог-файлы
const maxLogAgeDays = 7

// InitDailyLog — инициализирует лог-файлы формата <dir>/DD-MM-YYYY.log
// и <dir>/errors-DD-MM-YYYY.log. Пустой dir — пишем в stdout/stderr.
// Повторный вызов закрывает предыдущие файлы (ротация раз в сутки из main).
func InitDailyLog(dir, env string) error {
	if dir == "" {
		var out io.Writer = os.Stdout
		var errOut io.Writer = os.Stderr
		if env == "dev" {
			out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
			errOut = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		}
		swapLogger(&Logger{
			mainLogger:  zerolog.New(out).With().Timestamp().Logger(),
			errorLogger: zerolog.New(errOut).With().Timestamp().Logger(),
		})
		return nil
	}

	// Создаём директорию логов
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("создание директории %s: %w", dir, err)
	}

	// Формируем имена файлов на основе текущей даты
	dateStr := time.Now().Format("02-01-2006")
	mainPath := filepath.Join(dir, dateStr+".log")
	errorPath := filepath.Join(dir, "errors-"+dateStr+".log")

	mainFile, err := os.OpenFile(mainPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("открытие основного лог-файла: %w", err)
	}

	errorFile, err := os.OpenFile(errorPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		_ = mainFile.Close()
		return fmt.Errorf("открытие файла ошибок: %w", err)
	}

	swapLogger(&Logger{
		mainLogger:  zerolog.New(mainFile).With().Timestamp().Logger(),
		errorLogger: zerolog.New(errorFile).With().Timestamp().Logger(),
		mainFile:    mainFile,
		errorFile:   errorFile,
	})

	// Запускаем очистку старых логов один раз
	cleanupOnce.Do(func() { go cleanupOldLogs(dir, maxLogAgeDays) })
	return nil
}

// swapLogger подменяет глобальный логгер и закрывает файлы предыдущего
func swapLogger(l *Logger) {
	logMu.Lock()
	prev := globalLogger
	globalLogger = l
	logMu.Unlock()

	if prev != nil {
		prev.closeFiles()
	}
}

func (l *Logger) closeFiles() {
	consoleLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if l.mainFile != nil {
		if err := l.mainFile.Close(); err != nil {
			consoleLogger.Error().Msgf("Закрытие mainFile: %v", err)
		}
	}
	if l.errorFile != nil {
		if err := l.errorFile.Close(); err != nil {
			consoleLogger.Error().Msgf("Закрытие errorFile: %v", err)
		}
	}
}

func LogInfo(msg string, fields map[string]interface{}) {
	logMu.Lock()
	defer logMu.Unlock()
	if globalLogger == nil {
		return // Игнорируем, если логгер закрыт
	}
	event := globalLogger.mainLogger.Info()
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func LogWarn(msg string, fields map[string]interface{}) {
	logMu.Lock()
	defer logMu.Unlock()
	if globalLogger == nil {
		return
	}
	event := globalLogger.mainLogger.Warn()
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// LogError пишет и в журнал ошибок, и в основной журнал
func LogError(msg string, fields map[string]interface{}) {
	logMu.Lock()
	defer logMu.Unlock()
	if globalLogger == nil {
		return
	}
	for _, lg := range []zerolog.Logger{globalLogger.errorLogger, globalLogger.mainLogger} {
		event := lg.Error()
		for k, v := range fields {
			event = event.Interface(k, v)
		}
		event.Msg(msg)
	}
}

func cleanupOldLogs(dir string, days int) {
	files, err := os.ReadDir(dir)
	if err != nil {
		LogError("Не удалось прочитать директорию логов", map[string]interface{}{"dir": dir, "error": err.Error()})
		return
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, file.Name())
			if err := os.Remove(path); err != nil {
				LogError("Не удалось удалить старый лог", map[string]interface{}{"path": path, "error": err.Error()})
			}
		}
	}
}

// Close закрывает лог-файлы; после него Log* ничего не пишут
func Close() {
	logMu.Lock()
	prev := globalLogger
	globalLogger = nil
	logMu.Unlock()

	if prev != nil {
		prev.closeFiles()
	}
}
