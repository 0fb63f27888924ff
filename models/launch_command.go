package models

import (
	"fmt"
	"strconv"
)

type WorkerClass string

const (
	// WorkerClassAsync runs one event loop per worker process
	// (non-blocking I/O multiplexing within each worker).
	WorkerClassAsync WorkerClass = "async"

	// WorkerClassSync handles one request at a time per worker. Configuring it
	// for an asynchronous application silently degrades concurrency, so
	// validation rejects it.
	WorkerClassSync WorkerClass = "sync"
)

// LaunchCommand describes the exact command that starts the service in
// production: one process manager, N worker processes, one shared socket.
type LaunchCommand struct {
	BindHost       string      `json:"bind_host"`       // must be 0.0.0.0
	BindPort       int         `json:"bind_port"`       // must match the exposure declaration
	Workers        int         `json:"workers"`         // fixed at build time, not resized at runtime
	WorkerClass    WorkerClass `json:"worker_class"`    // async | sync
	TimeoutSeconds int         `json:"timeout_seconds"` // per-worker heartbeat window
}

// DefaultLaunchCommand mirrors the production launch shape:
// bind 0.0.0.0:8000, 4 workers, async worker class, 120s timeout.
func DefaultLaunchCommand() LaunchCommand {
	return LaunchCommand{
		BindHost:       "0.0.0.0",
		BindPort:       8000,
		Workers:        4,
		WorkerClass:    WorkerClassAsync,
		TimeoutSeconds: 120,
	}
}

// BindAddr renders the listen address, e.g. "0.0.0.0:8000".
func (c LaunchCommand) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.BindHost, c.BindPort)
}

// Argv reproduces the production process-start command for the given
// application target ("module_path:attribute_name"), token for token:
//
//	gunicorn src.server:app --bind 0.0.0.0:8000 --workers 4 \
//	    --worker-class uvicorn.workers.UvicornWorker --timeout 120
func (c LaunchCommand) Argv(target string) []string {
	workerClass := "uvicorn.workers.UvicornWorker"
	if c.WorkerClass == WorkerClassSync {
		workerClass = "sync"
	}
	return []string{
		"gunicorn", target,
		"--bind", c.BindAddr(),
		"--workers", strconv.Itoa(c.Workers),
		"--worker-class", workerClass,
		"--timeout", strconv.Itoa(c.TimeoutSeconds),
	}
}

func (c LaunchCommand) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("worker count must be >= 1, got %d", c.Workers)
	}
	if c.BindHost != "0.0.0.0" {
		return fmt.Errorf("bind host must be 0.0.0.0 so the published port mapping matches the exposure declaration, got %q", c.BindHost)
	}
	if c.BindPort < 1 || c.BindPort > 65535 {
		return fmt.Errorf("bind port %d out of range", c.BindPort)
	}
	if c.WorkerClass != WorkerClassAsync {
		return fmt.Errorf("worker class %q is not async-capable; the application framework is asynchronous", c.WorkerClass)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout must be >= 1 second, got %d", c.TimeoutSeconds)
	}
	return nil
}
