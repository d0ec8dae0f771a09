package stevedore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Supervisor orchestrates container lifecycles against a Gateway. It owns
// the StateStore and spawns one monitor task per created container.
type Supervisor struct {
	gw    Gateway
	store *StateStore

	interval time.Duration
	logger   *slog.Logger

	// tasks maps container name to its monitor task handle. Tasks are
	// never cancelled individually; they run until they observe a
	// terminal status or the supervisor shuts down.
	mu    sync.Mutex
	tasks map[string]*monitorTask

	ctx    context.Context
	cancel context.CancelFunc
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithPollInterval sets the delay between monitor polls.
func WithPollInterval(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.interval = d
	}
}

// WithLogger sets the logger used by the supervisor and its monitors.
func WithLogger(l *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// NewSupervisor creates a Supervisor over the given gateway.
func NewSupervisor(gw Gateway, opts ...SupervisorOption) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Supervisor{
		gw:       gw,
		store:    NewStateStore(),
		interval: defaultPollInterval,
		logger:   slog.Default(),
		tasks:    make(map[string]*monitorTask),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create validates the request, creates and starts the container through
// the gateway, and spawns a monitor task for it. It returns as soon as the
// container is started: the store may not yet hold a record for the name
// when Create returns, so callers must tolerate a transient miss.
func (s *Supervisor) Create(ctx context.Context, opts CreateOptions) error {
	if opts.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if opts.Image == "" {
		return fmt.Errorf("%w: image", ErrMissingField)
	}
	if len(opts.Command) == 0 {
		return fmt.Errorf("%w: command", ErrMissingField)
	}

	handle, err := s.gw.Create(ctx, opts)
	if err != nil {
		return err
	}

	s.logger.Info("container created", "name", opts.Name, "image", opts.Image)
	s.spawnMonitor(opts.Name, handle)
	return nil
}

// State returns the last recorded state of name. It never consults the
// gateway; a record can outlive its container (see Remove).
func (s *Supervisor) State(name string) (ContainerRecord, error) {
	rec, ok := s.store.Get(name)
	if !ok {
		return ContainerRecord{}, fmt.Errorf("%w: %s", ErrNotTracked, name)
	}
	return rec, nil
}

// Stop stops the named container. If the last recorded status is already
// terminal this is a no-op success with no gateway call. If no record
// exists yet (the container may have been created moments ago, before its
// first poll landed) the gateway is consulted directly; only when the
// engine does not know the name either does Stop report ErrNotTracked.
func (s *Supervisor) Stop(ctx context.Context, name string) error {
	rec, ok := s.store.Get(name)
	if ok && rec.Terminal() {
		return nil
	}

	handle, err := s.gw.Get(ctx, name)
	if err != nil {
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotTracked, name)
		}
		return err
	}

	if err := handle.Stop(ctx); err != nil {
		return err
	}

	s.logger.Info("container stopped", "name", name)
	return nil
}

// Remove deletes the named container from the engine. The container's
// store record is deliberately kept: a State call after Remove returns
// the last observed (usually terminal) record until process restart.
func (s *Supervisor) Remove(ctx context.Context, name string) error {
	handle, err := s.gw.Get(ctx, name)
	if err != nil {
		return err
	}

	if err := handle.Remove(ctx); err != nil {
		return err
	}

	s.logger.Info("container removed", "name", name)
	return nil
}

// Logs returns the named container's logs, straight from the gateway.
func (s *Supervisor) Logs(ctx context.Context, name string) (string, error) {
	handle, err := s.gw.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return handle.Logs(ctx)
}

// Shutdown stops all monitor tasks and waits for them to finish. Store
// contents are left as-is; they die with the process.
func (s *Supervisor) Shutdown() {
	s.cancel()

	s.mu.Lock()
	tasks := make([]*monitorTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		<-t.done
	}
}

// spawnMonitor registers and starts the monitor task for name. A second
// create under the same name replaces the registry entry; the engine has
// already rejected real duplicates at that point.
func (s *Supervisor) spawnMonitor(name string, handle Handle) {
	t := &monitorTask{
		name:   name,
		handle: handle,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.tasks[name] = t
	s.mu.Unlock()

	go s.runMonitor(t)
}
