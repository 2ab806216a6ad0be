// Package health содержит сервер статуса: liveness, health check и прогресс прогона.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const checkTimeout = 3 * time.Second

// Server представляет health check сервер
type Server struct {
	server   *http.Server
	db       DatabaseInterface
	progress ProgressSource
	logger   *zap.Logger
}

// NewServer создает новый health check сервер. db и progress могут быть nil.
func NewServer(port string, logger *zap.Logger, db DatabaseInterface, progress ProgressSource) *Server {
	mux := http.NewServeMux()

	healthServer := &Server{
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		db:       db,
		progress: progress,
		logger:   logger,
	}

	mux.HandleFunc("/health", healthServer.healthHandler)
	mux.HandleFunc("/live", healthServer.liveHandler)
	mux.HandleFunc("/progress", healthServer.progressHandler)

	return healthServer
}

// Handler возвращает обработчик маршрутов
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start запускает health check сервер и блокируется до остановки
func (s *Server) Start() error {
	s.logger.Info("Starting health check server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// Stop останавливает health check сервер
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("Stopping health check server")
	return s.server.Shutdown(ctx)
}

// healthHandler обрабатывает запросы /health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	checks := map[string]string{}

	if s.db != nil {
		if err := s.checkDatabase(r.Context()); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			checks["database"] = err.Error()
			s.logger.Error("Health check failed", zap.Error(err))
		} else {
			checks["database"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// liveHandler обрабатывает запросы /live
func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// progressHandler отдаёт прогресс текущего прогона
func (s *Server) progressHandler(w http.ResponseWriter, r *http.Request) {
	if s.progress == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "no run"})
		return
	}
	writeJSON(w, http.StatusOK, s.progress.Progress())
}

// checkDatabase проверяет подключение к базе данных
func (s *Server) checkDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
