// Package engine implements the stevedore.Gateway over the Docker API.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/mvdwal/stevedore"
)

const defaultStopTimeout = 10 // seconds

// Docker is a stevedore.Gateway backed by a Docker daemon.
type Docker struct {
	client      *client.Client
	platform    string
	stopTimeout int
}

// Option configures a Docker gateway.
type Option func(*Docker)

// WithPlatform sets the platform tag ("linux/amd64", "linux/arm64") passed
// to every image pull and container create.
func WithPlatform(p string) Option {
	return func(d *Docker) {
		d.platform = p
	}
}

// WithStopTimeout sets the grace period, in seconds, given to a container
// on stop before the daemon kills it.
func WithStopTimeout(seconds int) Option {
	return func(d *Docker) {
		d.stopTimeout = seconds
	}
}

// New connects to the Docker daemon and verifies it responds.
func New(opts ...Option) (*Docker, error) {
	d := &Docker{
		platform:    DetectPlatform(),
		stopTimeout: defaultStopTimeout,
	}

	for _, opt := range opts {
		opt(d)
	}

	cli, err := connect()
	if err != nil {
		return nil, err
	}
	d.client = cli

	return d, nil
}

// connect creates a Docker client, trying the environment configuration
// first and then common socket locations for Docker Desktop setups.
func connect() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err == nil {
		if pingOK(cli) {
			return cli, nil
		}
		cli.Close()
	}

	socketPaths := []string{
		"unix:///var/run/docker.sock",
		"unix://" + os.Getenv("HOME") + "/.docker/run/docker.sock",
		"unix://" + os.Getenv("HOME") + "/.colima/docker.sock",
	}

	for _, socketPath := range socketPaths {
		cli, err := client.NewClientWithOpts(
			client.WithHost(socketPath),
			client.WithAPIVersionNegotiation(),
		)
		if err != nil {
			continue
		}
		if pingOK(cli) {
			return cli, nil
		}
		cli.Close()
	}

	return nil, fmt.Errorf("could not connect to Docker daemon")
}

func pingOK(cli *client.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := cli.Ping(ctx)
	return err == nil
}

// DetectPlatform maps the host architecture to the Docker platform tag
// used for pulls and creates. Resolved once at startup; everything after
// treats it as an opaque string.
func DetectPlatform() string {
	switch runtime.GOARCH {
	case "arm64", "arm":
		return "linux/arm64"
	default:
		return "linux/amd64"
	}
}

// Create pulls the image if needed, then creates and starts the container.
func (d *Docker) Create(ctx context.Context, opts stevedore.CreateOptions) (stevedore.Handle, error) {
	platform := opts.Platform
	if platform == "" {
		platform = d.platform
	}

	if err := d.ensureImage(ctx, opts.Image, platform); err != nil {
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}

	cfg := &container.Config{
		Image: opts.Image,
		Cmd:   opts.Command,
	}
	hostCfg := &container.HostConfig{
		Binds: opts.Binds,
	}

	resp, err := d.client.ContainerCreate(ctx, cfg, hostCfg, nil, platformSpec(platform), opts.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := d.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	return &dockerHandle{gw: d, id: resp.ID, name: opts.Name}, nil
}

// Get resolves a container by name.
func (d *Docker) Get(ctx context.Context, name string) (stevedore.Handle, error) {
	containers, err := d.client.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("name", name),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	// The name filter matches substrings; require the exact name.
	for _, c := range containers {
		for _, n := range c.Names {
			if n == "/"+name {
				return &dockerHandle{gw: d, id: c.ID, name: name}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: container %s", stevedore.ErrNotFound, name)
}

// Images returns the first tag of every locally tagged image.
func (d *Docker) Images(ctx context.Context) ([]string, error) {
	images, err := d.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	var tags []string
	for _, img := range images {
		if len(img.RepoTags) > 0 {
			tags = append(tags, img.RepoTags[0])
		}
	}
	return tags, nil
}

// Pull pulls an image for the configured platform and returns its primary
// tag, or the requested reference if the image ends up untagged.
func (d *Docker) Pull(ctx context.Context, ref string) (string, error) {
	reader, err := d.client.ImagePull(ctx, ref, image.PullOptions{Platform: d.platform})
	if err != nil {
		return "", fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", fmt.Errorf("failed to pull image: %w", err)
	}

	inspect, _, err := d.client.ImageInspectWithRaw(ctx, ref)
	if err == nil && len(inspect.RepoTags) > 0 {
		return inspect.RepoTags[0], nil
	}
	return ref, nil
}

// ensureImage pulls an image if it is not present locally.
func (d *Docker) ensureImage(ctx context.Context, ref, platform string) error {
	_, _, err := d.client.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}

	reader, err := d.client.ImagePull(ctx, ref, image.PullOptions{Platform: platform})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

// platformSpec parses an "os/arch" tag into the create API's platform
// struct. A bare architecture is assumed to be linux.
func platformSpec(platform string) *ocispec.Platform {
	if platform == "" {
		return nil
	}

	parts := strings.SplitN(platform, "/", 2)
	if len(parts) == 1 {
		return &ocispec.Platform{OS: "linux", Architecture: parts[0]}
	}
	return &ocispec.Platform{OS: parts[0], Architecture: parts[1]}
}

// dockerHandle is a resolved container reference.
type dockerHandle struct {
	gw   *Docker
	id   string
	name string
}

func (h *dockerHandle) Reload(ctx context.Context) (stevedore.Observation, error) {
	inspect, err := h.gw.client.ContainerInspect(ctx, h.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return stevedore.Observation{}, fmt.Errorf("%w: container %s", stevedore.ErrNotFound, h.name)
		}
		return stevedore.Observation{}, fmt.Errorf("failed to inspect container: %w", err)
	}

	return stevedore.Observation{
		Status:   inspect.State.Status,
		ExitCode: inspect.State.ExitCode,
	}, nil
}

func (h *dockerHandle) Stop(ctx context.Context) error {
	timeout := h.gw.stopTimeout
	if err := h.gw.client.ContainerStop(ctx, h.id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

func (h *dockerHandle) Remove(ctx context.Context) error {
	if err := h.gw.client.ContainerRemove(ctx, h.id, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

func (h *dockerHandle) Logs(ctx context.Context) (string, error) {
	reader, err := h.gw.client.ContainerLogs(ctx, h.id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to read logs: %w", err)
	}
	defer reader.Close()

	var output strings.Builder
	if _, err := stdcopy.StdCopy(&output, &output, reader); err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read logs: %w", err)
	}
	return output.String(), nil
}

func (h *dockerHandle) Archive(ctx context.Context, path string) (io.ReadCloser, error) {
	reader, _, err := h.gw.client.CopyFromContainer(ctx, h.id, path)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s in container %s", stevedore.ErrNotFound, path, h.name)
		}
		return nil, fmt.Errorf("failed to fetch archive: %w", err)
	}
	return reader, nil
}
