package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bondlens/bondlens/app/cfg"
	"github.com/bondlens/bondlens/app/database"
	"github.com/bondlens/bondlens/app/synthesizer"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler runs the background worker pool. Analysis tasks are enqueued by
// the ingest API; the scheduler's own ticker watches recent windows and
// enqueues a synthesis pass whenever a window's document population changed
// since its latest consensus run.
type Scheduler struct {
	documentRepo   database.DocumentRepository
	assessmentRepo database.AssessmentRepository
	consensusRepo  database.ConsensusRepository
	synthesizer    *synthesizer.Synthesizer
	windowHours    int
	interval       time.Duration
	workerCount    int
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	taskQueue      chan TaskInterface
}

func NewScheduler(s *synthesizer.Synthesizer, documentRepo database.DocumentRepository,
	assessmentRepo database.AssessmentRepository, consensusRepo database.ConsensusRepository) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		documentRepo:   documentRepo,
		assessmentRepo: assessmentRepo,
		consensusRepo:  consensusRepo,
		synthesizer:    s,
		windowHours:    cfg.WindowHours,
		interval:       time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:    cfg.WorkerCount,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueSynthesisTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// maxWindowsPerScan bounds the synthesis work one tick can enqueue. Skipped
// windows stay stale and reappear on the next tick.
const maxWindowsPerScan = 20

// enqueueSynthesisTasks asks the store which windows have a fully-terminal
// document set whose count no longer matches their latest consensus run, and
// enqueues a new run for each. Windows closed days or weeks ago surface here
// too: a late-arriving document reopens its window on the next tick.
func (s *Scheduler) enqueueSynthesisTasks() {
	windows, err := s.documentRepo.GetWindowsNeedingSynthesis(maxWindowsPerScan)
	if err != nil {
		slog.Warn("Failed to scan windows needing synthesis", "error", err)
		return
	}

	for _, windowStart := range windows {
		start, end := synthesizer.WindowBounds(windowStart, s.windowHours)

		task := NewSynthesizeWindowTask(start, end, database.RunTriggerScheduled, s.synthesizer,
			s.documentRepo, s.assessmentRepo, s.consensusRepo)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue SynthesizeWindowTask", "window", start.Format("2006-01-02"), "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
