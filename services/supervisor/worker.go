package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	listenerFDEnv  = "LAUNCHKIT_LISTENER_FD"
	heartbeatFDEnv = "LAUNCHKIT_HEARTBEAT_FD"
	workerSlotEnv  = "LAUNCHKIT_WORKER_SLOT"
)

// IsWorker reports whether this process was spawned by a supervisor.
func IsWorker() bool {
	return os.Getenv(listenerFDEnv) != ""
}

// WorkerOptions tune one worker process.
type WorkerOptions struct {
	// HeartbeatInterval is how often the worker tells the supervisor it is
	// alive. Must be well under the supervisor timeout.
	HeartbeatInterval time.Duration

	// ShutdownGrace bounds the drain of in-flight requests on SIGTERM.
	ShutdownGrace time.Duration

	Logger *slog.Logger
}

// RunWorker serves the statically bound application handler on the socket
// inherited from the supervisor. One worker is one OS process running one
// server; concurrency within the worker is the server's non-blocking
// accept/serve loop. Returns when ctx is cancelled or the listener fails.
func RunWorker(ctx context.Context, handler http.Handler, opts WorkerOptions) error {
	if !IsWorker() {
		return ErrNotWorker
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = time.Second
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	slot := os.Getenv(workerSlotEnv)

	ln, err := inheritedListener()
	if err != nil {
		return err
	}
	defer ln.Close()

	heartbeat, err := inheritedHeartbeat()
	if err != nil {
		return err
	}
	defer heartbeat.Close()

	opts.Logger.Info("worker serving", "slot", slot, "pid", os.Getpid(), "addr", ln.Addr().String())

	srv := &http.Server{Handler: handler}

	beatCtx, stopBeats := context.WithCancel(ctx)
	defer stopBeats()
	go func() {
		ticker := time.NewTicker(opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-beatCtx.Done():
				return
			case <-ticker.C:
				// A stuck event loop cannot reach this write, which is
				// exactly what lets the supervisor detect it.
				if _, err := heartbeat.Write([]byte{'.'}); err != nil {
					return
				}
			}
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("worker shutdown: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("worker serve: %w", err)
	}
}

func inheritedListener() (net.Listener, error) {
	fd, err := strconv.Atoi(os.Getenv(listenerFDEnv))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", listenerFDEnv, err)
	}

	f := os.NewFile(uintptr(fd), "listener")
	if f == nil {
		return nil, fmt.Errorf("no inherited listener at fd %d", fd)
	}
	defer f.Close()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("rebuild listener from fd %d: %w", fd, err)
	}
	return ln, nil
}

func inheritedHeartbeat() (*os.File, error) {
	fd, err := strconv.Atoi(os.Getenv(heartbeatFDEnv))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", heartbeatFDEnv, err)
	}

	f := os.NewFile(uintptr(fd), "heartbeat")
	if f == nil {
		return nil, fmt.Errorf("no inherited heartbeat pipe at fd %d", fd)
	}
	return f, nil
}
