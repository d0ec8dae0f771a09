package stevedore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// fakeHandle is an in-process Handle that serves a scripted sequence of
// observations. The last observation repeats once the script runs out.
type fakeHandle struct {
	mu        sync.Mutex
	obs       []Observation
	reloadErr error // returned by every Reload when set
	archive   []byte
	archErr   error
	logs      string

	reloads int
	stops   int
	removes int
}

func (h *fakeHandle) Reload(ctx context.Context) (Observation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.reloads++
	if h.reloadErr != nil {
		return Observation{}, h.reloadErr
	}

	o := h.obs[0]
	if len(h.obs) > 1 {
		h.obs = h.obs[1:]
	}
	return o, nil
}

func (h *fakeHandle) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	return nil
}

func (h *fakeHandle) Remove(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removes++
	return nil
}

func (h *fakeHandle) Logs(ctx context.Context) (string, error) {
	return h.logs, nil
}

func (h *fakeHandle) Archive(ctx context.Context, path string) (io.ReadCloser, error) {
	if h.archErr != nil {
		return nil, h.archErr
	}
	return io.NopCloser(bytes.NewReader(h.archive)), nil
}

func (h *fakeHandle) reloadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloads
}

func (h *fakeHandle) stopCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

// fakeGateway is an in-process Gateway over a fixed set of handles. It
// records call counts so tests can assert which engine calls happened.
type fakeGateway struct {
	mu        sync.Mutex
	handles   map[string]*fakeHandle
	createErr error

	creates int
	gets    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{handles: make(map[string]*fakeHandle)}
}

func (g *fakeGateway) add(name string, h *fakeHandle) {
	g.mu.Lock()
	g.handles[name] = h
	g.mu.Unlock()
}

func (g *fakeGateway) Create(ctx context.Context, opts CreateOptions) (Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.creates++
	if g.createErr != nil {
		return nil, g.createErr
	}

	h, ok := g.handles[opts.Name]
	if !ok {
		h = &fakeHandle{obs: []Observation{{Status: "running"}}}
		g.handles[opts.Name] = h
	}
	return h, nil
}

func (g *fakeGateway) Get(ctx context.Context, name string) (Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.gets++
	h, ok := g.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, name)
	}
	return h, nil
}

func (g *fakeGateway) getCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gets
}
