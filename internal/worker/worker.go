// Package worker реализует пул воркеров для параллельной обработки плейлистов.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWorkers количество воркеров по умолчанию
const DefaultWorkers = 2

// Pool пул воркеров с ограниченной очередью задач
type Pool struct {
	workers   int
	jobQueue  chan Job
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *zap.Logger
	metrics   *Metrics
	closeOnce sync.Once
	stopped   bool
	mu        sync.RWMutex
}

// Job задача для обработки
type Job struct {
	ID      string
	Name    string
	Handler func(ctx context.Context) error
}

// Metrics метрики пула
type Metrics struct {
	mu             sync.RWMutex
	processedJobs  int64
	failedJobs     int64
	processingTime time.Duration
	queueSize      int
}

// Snapshot копия метрик пула
type Snapshot struct {
	ProcessedJobs  int64
	FailedJobs     int64
	ProcessingTime time.Duration
	QueueSize      int
}

// New создает пул из workers воркеров с очередью на queueSize задач
func New(workers int, queueSize int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize < 0 {
		queueSize = 0
	}

	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
		logger:   logger,
		metrics:  &Metrics{},
	}
}

// Start запускает воркеры. Отмена ctx останавливает пул так же, как Stop.
func (wp *Pool) Start(ctx context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(ctx)

	wp.logger.Info("Starting worker pool", zap.Int("workers", wp.workers))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Submit добавляет задачу в очередь
func (wp *Pool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped || wp.ctx == nil || wp.ctx.Err() != nil {
		return ErrPoolStopped
	}

	select {
	case wp.jobQueue <- job:
		wp.metrics.mu.Lock()
		wp.metrics.queueSize = len(wp.jobQueue)
		wp.metrics.mu.Unlock()
		return nil
	default:
		return ErrQueueFull
	}
}

// Wait закрывает очередь и ждёт, пока воркеры обработают все принятые задачи
func (wp *Pool) Wait() {
	wp.closeQueue()
	wp.wg.Wait()
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.logger.Info("Worker pool drained",
		zap.Int64("processed", wp.GetProcessedJobs()),
		zap.Int64("failed", wp.GetFailedJobs()))
}

// Stop отменяет текущие задачи и останавливает воркеры, не дожидаясь очереди
func (wp *Pool) Stop() {
	wp.logger.Info("Stopping worker pool")
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.closeQueue()
	wp.wg.Wait()
	wp.logger.Info("Worker pool stopped")
}

func (wp *Pool) closeQueue() {
	wp.closeOnce.Do(func() {
		wp.mu.Lock()
		wp.stopped = true
		wp.mu.Unlock()
		close(wp.jobQueue)
	})
}

// worker основной цикл воркера
func (wp *Pool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				wp.logger.Debug("Worker stopping", zap.Int("worker_id", id))
				return
			}

			wp.processJob(job, id)

		case <-wp.ctx.Done():
			wp.logger.Debug("Worker context cancelled", zap.Int("worker_id", id))
			return
		}
	}
}

// processJob выполняет задачу. Ошибка или паника задачи не затрагивает другие задачи.
func (wp *Pool) processJob(job Job, workerID int) {
	startTime := time.Now()

	wp.metrics.mu.Lock()
	wp.metrics.queueSize = len(wp.jobQueue)
	wp.metrics.mu.Unlock()

	wp.logger.Debug("Processing job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID),
		zap.String("job", job.Name))

	err := wp.run(job)
	elapsed := time.Since(startTime)

	wp.metrics.mu.Lock()
	wp.metrics.processingTime += elapsed
	if err != nil {
		wp.metrics.failedJobs++
	} else {
		wp.metrics.processedJobs++
	}
	wp.metrics.mu.Unlock()

	if err != nil {
		wp.logger.Error("Job processing failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID),
			zap.String("job", job.Name),
			zap.Error(err))
		return
	}

	wp.logger.Debug("Job processed successfully",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID),
		zap.Duration("duration", elapsed))
}

func (wp *Pool) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Handler(wp.ctx)
}

// GetMetrics возвращает текущие метрики
func (wp *Pool) GetMetrics() Snapshot {
	wp.metrics.mu.RLock()
	defer wp.metrics.mu.RUnlock()

	return Snapshot{
		ProcessedJobs:  wp.metrics.processedJobs,
		FailedJobs:     wp.metrics.failedJobs,
		ProcessingTime: wp.metrics.processingTime,
		QueueSize:      wp.metrics.queueSize,
	}
}

// GetProcessedJobs возвращает количество обработанных задач
func (wp *Pool) GetProcessedJobs() int64 {
	wp.metrics.mu.RLock()
	defer wp.metrics.mu.RUnlock()
	return wp.metrics.processedJobs
}

// GetFailedJobs возвращает количество неудачных задач
func (wp *Pool) GetFailedJobs() int64 {
	wp.metrics.mu.RLock()
	defer wp.metrics.mu.RUnlock()
	return wp.metrics.failedJobs
}

// Ошибки
var (
	ErrQueueFull   = &Error{msg: "job queue is full"}
	ErrPoolStopped = &Error{msg: "worker pool is stopped"}
)

// Error ошибка воркера
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return e.msg
}
