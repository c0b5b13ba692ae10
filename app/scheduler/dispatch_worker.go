// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/farhadmsg/blastline/config"
	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/repository"
	"github.com/farhadmsg/blastline/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	deliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_delivery_attempts_total",
		Help: "Delivery attempts picked up by the dispatch worker",
	}, []string{"channel"})

	deliveryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_delivery_errors_total",
		Help: "Delivery attempts that returned an executor error",
	}, []string{"channel"})

	dispatchBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_batch_size",
		Help:    "Number of due message logs claimed per poll",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 200, 500},
	})
)

// Executor runs one delivery attempt. Extracted as a minimal interface so
// the worker stays independent and easy to test.
type Executor interface {
	Execute(ctx context.Context, row *models.MessageLog) error
}

// DispatchWorker polls the message log for due rows and fans them out to the
// delivery executor. The database is the queue: pending and scheduled rows
// with a passed initiated time are due, and claiming is the executor's
// guarded status transition.
type DispatchWorker struct {
	logRepo  repository.MessageLogRepository
	executor Executor
	logger   *log.Logger

	interval    time.Duration
	batchSize   int
	sendTimeout time.Duration
	concurrency int
}

func NewDispatchWorker(
	logRepo repository.MessageLogRepository,
	executor Executor,
	schedCfg config.SchedulerConfig,
	logCfg config.LoggingConfig,
) *DispatchWorker {
	w := &DispatchWorker{
		logRepo:     logRepo,
		executor:    executor,
		interval:    schedCfg.PollInterval,
		batchSize:   schedCfg.BatchSize,
		sendTimeout: schedCfg.SendTimeout,
		concurrency: schedCfg.Concurrency,
	}
	if w.interval <= 0 {
		w.interval = utils.DefaultDispatchInterval
	}
	if w.batchSize <= 0 {
		w.batchSize = utils.DefaultDispatchBatchSize
	}
	if w.sendTimeout <= 0 {
		w.sendTimeout = utils.DefaultSendTimeout
	}
	if w.concurrency <= 0 {
		w.concurrency = 16
	}

	w.logger = newWorkerLogger(logCfg)
	return w
}

// newWorkerLogger writes to stdout and a rotating file.
func newWorkerLogger(cfg config.LoggingConfig) *log.Logger {
	var out io.Writer = os.Stdout
	if cfg.FilePath != "" && cfg.Output != "stdout" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Output == "file" {
			out = rotating
		} else {
			out = io.MultiWriter(os.Stdout, rotating)
		}
	}
	// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
	return log.New(out, "dispatch ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the worker loop in a background goroutine and returns a stop function
func (w *DispatchWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()

	return cancel
}

// runOnce claims one batch of due rows and delivers them with bounded
// concurrency. An adapter timeout counts as a delivery failure and takes
// the executor's refund path, not the worker's.
func (w *DispatchWorker) runOnce(ctx context.Context) {
	due, err := w.logRepo.ListDue(ctx, utils.UTCNow(), w.batchSize)
	if err != nil {
		w.logger.Printf("list due failed: %v", err)
		return
	}
	dispatchBatchSize.Observe(float64(len(due)))
	if len(due) == 0 {
		return
	}
	w.logger.Printf("claiming %d due messages", len(due))

	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup
	for _, row := range due {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(row *models.MessageLog) {
			defer wg.Done()
			defer func() { <-sem }()

			deliveryAttempts.WithLabelValues(string(row.Channel)).Inc()

			sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
			defer cancel()

			if err := w.executor.Execute(sendCtx, row); err != nil {
				deliveryErrors.WithLabelValues(string(row.Channel)).Inc()
				w.logger.Printf("delivery of message %d failed: %v", row.ID, err)
			}
		}(row)
	}
	wg.Wait()
}
