package stevedore

import (
	"context"
	"io"
)

// CreateOptions describes a container to create and start.
type CreateOptions struct {
	// Name is the externally assigned container name, unique per engine.
	Name string

	// Image is the image reference to run.
	Image string

	// Command is the command to run in the container.
	Command []string

	// Binds are volume specs in "host:container[:mode]" form. Validity
	// is the engine's problem.
	Binds []string

	// Platform is an opaque platform tag (e.g. "linux/amd64") resolved
	// once at startup.
	Platform string
}

// Observation is a single refreshed view of a container's state.
type Observation struct {
	Status   string
	ExitCode int
}

// Handle is a resolved reference to one container in the engine.
type Handle interface {
	// Reload refreshes and returns the container's current state.
	Reload(ctx context.Context) (Observation, error)

	// Stop stops the container. Stopping an already stopped container
	// is the engine's concern, not ours.
	Stop(ctx context.Context) error

	// Remove deletes the container from the engine.
	Remove(ctx context.Context) error

	// Logs returns the container's combined stdout and stderr.
	Logs(ctx context.Context) (string, error)

	// Archive returns a tar stream of the given in-container path. The
	// caller owns the reader. Returns ErrNotFound when the path does
	// not exist in the container.
	Archive(ctx context.Context, path string) (io.ReadCloser, error)
}

// Gateway is the boundary to the container engine. Any engine with
// create/get/stop/remove/archive primitives can sit behind it.
type Gateway interface {
	// Create creates and starts a container, returning a handle to it.
	Create(ctx context.Context, opts CreateOptions) (Handle, error)

	// Get resolves an existing container by name. Returns ErrNotFound
	// when no such container exists.
	Get(ctx context.Context, name string) (Handle, error)
}
