package health

import (
	"context"

	"github.com/based-on-what/Zortify/internal/model"
)

// DatabaseInterface определяет интерфейс для проверки здоровья базы данных
type DatabaseInterface interface {
	Ping(ctx context.Context) error
}

// ProgressSource отдаёт снимок текущего прогона
type ProgressSource interface {
	Progress() model.RunProgress
}
