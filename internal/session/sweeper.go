package session

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// ScheduleSweep registers a job on s that ends sessions idle for longer
// than idle, every interval.
func (m *Manager) ScheduleSweep(s gocron.Scheduler, interval, idle time.Duration) error {
	_, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := m.Sweep(idle); n > 0 {
				logrus.WithField("ended", n).Info("idle sessions swept")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}
