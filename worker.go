package quotes

import (
	"context"

	"go.uber.org/zap"
)

type Worker struct {
	ID         int
	WorkerPool chan chan WorkRequest
	JobChannel chan WorkRequest
	quit       chan bool
	logger     *zap.Logger
}

// WorkRequest is one unit of background work. Name identifies the task in
// logs; the task itself carries everything else in its closure.
type WorkRequest struct {
	Ctx  context.Context
	Name string
	Task func(ctx context.Context) error
}

func NewWorker(id int, workerPool chan chan WorkRequest, logger *zap.Logger) Worker {
	return Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan WorkRequest),
		quit:       make(chan bool),
		logger:     logger,
	}
}

func (w Worker) Start() {
	go func() {
		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.logger.Info("Starting background task",
					zap.String("task", job.Name),
					zap.Int("worker_id", w.ID))

				err := job.Task(job.Ctx)

				if err != nil {
					w.logger.Error("Background task failed",
						zap.Error(err),
						zap.String("task", job.Name),
						zap.Int("worker_id", w.ID))
				} else {
					w.logger.Info("Background task finished",
						zap.String("task", job.Name),
						zap.Int("worker_id", w.ID))
				}

			case <-w.quit:
				return
			}
		}
	}()
}

func (w Worker) Stop() {
	close(w.quit)
}
