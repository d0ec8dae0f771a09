package stevedore

import "time"

// Container status values the supervisor cares about. Status strings are
// otherwise engine-reported and free-form.
const (
	// StatusExited is the engine's status for a container that ran to
	// completion.
	StatusExited = "exited"

	// StatusDead is the engine's status for a container the daemon gave
	// up on. It will not resume running.
	StatusDead = "dead"

	// StatusErrored is assigned by a monitor task that exhausted its
	// reload retries. It never comes from the engine.
	StatusErrored = "errored"
)

// ContainerRecord is the last observed lifecycle state of one container.
// Records are written only by the container's own monitor task and are
// overwritten whole on every poll.
type ContainerRecord struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	ExitCode   int       `json:"exit_code"`
	ObservedAt time.Time `json:"observed_at"`
}

// Terminal reports whether the container will not run again. ExitCode is
// only meaningful when Terminal returns true.
func (r ContainerRecord) Terminal() bool {
	switch r.Status {
	case StatusExited, StatusDead, StatusErrored:
		return true
	}
	return false
}
