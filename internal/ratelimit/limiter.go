// Package ratelimit ограничивает частоту запросов к Spotify API.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter выдерживает минимальный интервал между запросами.
// Безопасен для одновременного использования из нескольких воркеров.
type Limiter struct {
	limiter *rate.Limiter
}

// New создает лимитер на requestsPerSecond запросов в секунду.
// При requestsPerSecond <= 0 ограничение отключено.
func New(requestsPerSecond float64) *Limiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &Limiter{
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Wait блокирует вызывающего, пока с предыдущего вызова не пройдёт 1/rps секунд
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("rate limiter wait: %w", ctxErr)
		}
		// ожидание не укладывается в дедлайн контекста
		return fmt.Errorf("rate limiter wait: %w: %v", context.DeadlineExceeded, err)
	}
	return nil
}

// Interval возвращает минимальный интервал между запросами
func (l *Limiter) Interval() time.Duration {
	if l.limiter.Limit() == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.limiter.Limit()))
}
