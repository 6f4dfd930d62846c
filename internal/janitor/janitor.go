package janitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one housekeeping task; Run reports how many records it removed.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

type Janitor struct {
	cron    *cron.Cron
	jobs    []Job
	log     *zap.Logger
	timeout time.Duration
}

// New schedules jobs on spec (standard five field cron or @every/@daily forms).
func New(spec string, log *zap.Logger, jobs ...Job) (*Janitor, error) {
	j := &Janitor{
		cron:    cron.New(),
		jobs:    jobs,
		log:     log,
		timeout: 5 * time.Minute,
	}
	if _, err := j.cron.AddFunc(spec, j.RunOnce); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) Start() { j.cron.Start() }

// Stop waits for a running pass to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce runs every job in order; a failing job does not stop the others.
func (j *Janitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	for _, job := range j.jobs {
		start := time.Now()
		n, err := job.Run(ctx)
		if err != nil {
			j.log.Error("janitor job failed", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		j.log.Info("janitor job done",
			zap.String("job", job.Name),
			zap.Int("removed", n),
			zap.Duration("took", time.Since(start)),
		)
	}
}
