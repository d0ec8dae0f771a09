package stevedore

import "errors"

var (
	// ErrMissingField reports a create request with an empty required field.
	ErrMissingField = errors.New("missing required field")

	// ErrNotFound reports a container or in-container path the engine
	// does not know about.
	ErrNotFound = errors.New("not found")

	// ErrNotTracked reports a container name the supervisor has never
	// observed.
	ErrNotTracked = errors.New("container not tracked")

	// ErrNoRegularFile reports a fetched archive with no regular file
	// members to extract.
	ErrNoRegularFile = errors.New("archive contains no regular file")
)
