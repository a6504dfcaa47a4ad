package roster

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler runs the periodic rotation and reminder passes in-process.
// Deployments that drive the passes through the HTTP trigger endpoints
// instead leave the intervals at zero and never start it; both paths
// share the same engine code.
type Scheduler struct {
	engine      *Engine
	send        Sender
	rotateEvery time.Duration
	informEvery time.Duration
	log         *logrus.Entry
}

// NewScheduler creates a Scheduler. A zero interval disables that pass.
func NewScheduler(engine *Engine, send Sender, rotateEvery, informEvery time.Duration, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		engine:      engine,
		send:        send,
		rotateEvery: rotateEvery,
		informEvery: informEvery,
		log:         log,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	rotate := newTicker(s.rotateEvery)
	inform := newTicker(s.informEvery)
	defer rotate.Stop()
	defer inform.Stop()

	s.log.WithFields(logrus.Fields{
		"rotate_every": s.rotateEvery.String(),
		"inform_every": s.informEvery.String(),
	}).Info("schedule loop running")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("schedule loop stopping")
			return
		case <-rotate.C:
			if _, err := s.engine.AdvanceAll(ctx); err != nil {
				s.log.WithError(err).Error("scheduled rotation pass failed")
			}
		case <-inform.C:
			if _, err := s.engine.NotifyAll(ctx, s.send); err != nil {
				s.log.WithError(err).Error("scheduled reminder pass failed")
			}
		}
	}
}

// newTicker returns a ticker that never fires for a zero interval.
func newTicker(every time.Duration) *time.Ticker {
	if every <= 0 {
		t := time.NewTicker(time.Hour)
		t.Stop()
		return t
	}
	return time.NewTicker(every)
}
