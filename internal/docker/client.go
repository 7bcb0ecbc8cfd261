// client.go connects to the Docker daemon for --from-docker imports.
//
// Only two daemon calls are ever made: Ping, to fail fast with a clear
// message when Docker is down, and ContainerList through ContainerLister.
// Everything else about discovery is pure and lives in container.go.
package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// pingTimeout bounds the reachability check before discovery starts.
const pingTimeout = 5 * time.Second

// windowsPipe is the Docker Desktop engine pipe on Windows.
const windowsPipe = `//./pipe/docker_engine`

// ContainerLister is the subset of the Docker SDK used for discovery.
// *client.Client satisfies it; tests supply a fake.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// Client is a daemon connection used by --from-docker.
//
//	c, err := docker.NewClient()
//	if err != nil { ... }
//	defer c.Close()
//	docs, err := docker.DiscoverDocuments(ctx, c.Lister(), logger)
type Client struct {
	inner *client.Client
}

// NewClient connects to DOCKER_HOST when it is set, otherwise to the first
// local engine endpoint found (see socketCandidates). Failures are returned
// as a model.CLIError with ExitDockerNotRunning, since --from-docker cannot
// do anything without a daemon.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		var err error
		if host, err = localEngineHost(); err != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning,
				"--from-docker needs a Docker engine, but none was found", err)
		}
	}

	c, err := client.NewClientWithOpts(client.WithHost(host), client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("cannot use Docker engine at %q for container discovery", host), err)
	}
	return &Client{inner: c}, nil
}

// localEngineHost returns the host URI of the local engine.
func localEngineHost() (string, error) {
	if runtime.GOOS == "windows" {
		// Named pipes cannot be stat'ed; a short dial tells whether the
		// engine is listening.
		conn, err := net.DialTimeout("pipe", windowsPipe, time.Second)
		if err != nil {
			return "", fmt.Errorf("no engine pipe at %s: %w", windowsPipe, err)
		}
		_ = conn.Close()
		return "npipe://" + windowsPipe, nil
	}

	home, _ := os.UserHomeDir()
	candidates := socketCandidates(runtime.GOOS, home)
	if len(candidates) == 0 {
		return "", fmt.Errorf("container discovery is not supported on %s", runtime.GOOS)
	}
	return firstSocket(candidates)
}

// socketCandidates lists the Unix sockets an engine may listen on, most
// preferred first. Recent Docker Desktop releases on macOS create only the
// per-user socket.
func socketCandidates(goos, home string) []string {
	switch goos {
	case "linux":
		return []string{"/var/run/docker.sock"}
	case "darwin":
		if home == "" {
			return []string{"/var/run/docker.sock"}
		}
		return []string{"/var/run/docker.sock", filepath.Join(home, ".docker", "run", "docker.sock")}
	default:
		return nil
	}
}

// firstSocket returns "unix://<path>" for the first path that exists.
func firstSocket(paths []string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return "unix://" + p, nil
		}
	}
	return "", fmt.Errorf("no engine socket at %v", paths)
}

// Ping checks the engine answers within pingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(ctx); err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			"Docker engine did not answer; start Docker or drop --from-docker", err)
	}
	return nil
}

// Close releases the connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Lister returns the SDK client as a ContainerLister for discovery.
func (c *Client) Lister() ContainerLister {
	return c.inner
}
