package stevedore

import "time"

const (
	defaultPollInterval = time.Second

	// reloadRetryLimit bounds consecutive reload failures before a
	// monitor gives up and records the container as errored.
	reloadRetryLimit = 3
)

// monitorTask tracks one container from creation to terminal status. Its
// only durable effect is StateStore writes.
type monitorTask struct {
	name   string
	handle Handle
	done   chan struct{}
}

// runMonitor polls the container until it observes a terminal status.
// Every successful poll overwrites the container's store record. Reload
// failures are retried with doubling backoff up to reloadRetryLimit; after
// that the task writes a StatusErrored record and exits, so a dead engine
// shows up in the store instead of a silently stalled monitor.
func (s *Supervisor) runMonitor(t *monitorTask) {
	defer close(t.done)

	retries := 0
	backoff := s.interval

	for {
		obs, err := t.handle.Reload(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			if retries >= reloadRetryLimit {
				s.logger.Error("monitor giving up", "name", t.name, "error", err)
				s.store.Put(ContainerRecord{
					Name:       t.name,
					Status:     StatusErrored,
					ExitCode:   -1,
					ObservedAt: time.Now(),
				})
				return
			}
			retries++
			s.logger.Warn("reload failed", "name", t.name, "attempt", retries, "error", err)
			if !s.sleep(backoff) {
				return
			}
			backoff *= 2
			continue
		}

		retries = 0
		backoff = s.interval

		rec := ContainerRecord{
			Name:       t.name,
			Status:     obs.Status,
			ExitCode:   obs.ExitCode,
			ObservedAt: time.Now(),
		}
		s.store.Put(rec)

		if rec.Terminal() {
			s.logger.Info("container terminal", "name", t.name, "status", rec.Status, "exit_code", rec.ExitCode)
			return
		}

		if !s.sleep(s.interval) {
			return
		}
	}
}

// sleep waits for d or until the supervisor shuts down. It returns false
// when the wait was cut short by shutdown.
func (s *Supervisor) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}
