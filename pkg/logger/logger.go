// Package logger содержит настройку логгера.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options параметры логгера
type Options struct {
	Level string
	// Path файл логов, пустое значение выбирает путь по умолчанию
	Path string
	// Console вывод в консоль, по умолчанию stderr
	Console io.Writer
}

// New создает логгер по переменным окружения LOG_LEVEL, LOG_PATH и APP_DATA_DIR
func New() *zap.Logger {
	return NewWithOptions(Options{
		Level: os.Getenv("LOG_LEVEL"),
		Path:  os.Getenv("LOG_PATH"),
	})
}

// NewWithOptions создает логгер с выводом в консоль и в файл с ротацией
func NewWithOptions(opts Options) *zap.Logger {
	level := ParseLevel(opts.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(console),
		level,
	)

	logPath := opts.Path
	if logPath == "" {
		logPath = defaultLogPath()
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}),
		level,
	)

	core := zapcore.NewTee(consoleCore, fileCore)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// ParseLevel разбирает уровень логирования, по умолчанию info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// defaultLogPath возвращает путь к файлу логов в APP_DATA_DIR или в локальной папке logs
func defaultLogPath() string {
	if dataDir := os.Getenv("APP_DATA_DIR"); dataDir != "" {
		if err := os.MkdirAll(dataDir, 0755); err == nil {
			return filepath.Join(dataDir, "zortify.log")
		}
	}

	if err := os.MkdirAll("logs", 0755); err == nil {
		return filepath.Join("logs", "zortify.log")
	}

	return "zortify.log"
}
