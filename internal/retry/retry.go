// Package retry реализует повтор запросов по фиксированной таблице задержек.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Kind категория ошибки запроса
type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindServerError Kind = "server_error"
	KindOther       Kind = "other"
)

// KindOf определяет категорию по HTTP статусу
func KindOf(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= http.StatusInternalServerError && status <= 599:
		return KindServerError
	default:
		return KindOther
	}
}

// StatusCoder ошибка, знающая HTTP статус ответа
type StatusCoder interface {
	HTTPStatus() int
}

// Classify определяет категорию ошибки
func Classify(err error) Kind {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return KindOf(sc.HTTPStatus())
	}
	return KindOther
}

// DefaultBackoff таблица задержек по умолчанию
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

// SleepFunc ожидание между попытками
type SleepFunc func(ctx context.Context, d time.Duration) error

// Operation повторяемая операция
type Operation func(ctx context.Context) error

// Policy политика повторов: после i-й неудачи ждём Backoff[i] и повторяем,
// пока таблица не закончится
type Policy struct {
	Backoff []time.Duration
	Sleep   SleepFunc
	Logger  *zap.Logger
}

// NewPolicy создает политику с заданной таблицей задержек
func NewPolicy(backoff []time.Duration, logger *zap.Logger) *Policy {
	if len(backoff) == 0 {
		backoff = DefaultBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Policy{
		Backoff: backoff,
		Sleep:   SleepContext,
		Logger:  logger,
	}
}

// Do выполняет op, повторяя её при ошибках. Возвращает последнюю ошибку,
// если все попытки исчерпаны.
func (p *Policy) Do(ctx context.Context, op Operation) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt <= len(p.Backoff); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if attempt == len(p.Backoff) {
			break
		}

		delay := p.Backoff[attempt]
		logger.Warn("Request failed, retrying",
			zap.String("kind", string(Classify(err))),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", len(p.Backoff)),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// SleepContext ждёт d или отмены контекста
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
