// Package supervisor is the process manager for the service: it binds the
// listening socket once, spawns a fixed count of worker processes that
// inherit it, and keeps that count alive. A worker that stops heartbeating
// within the timeout window is killed and replaced; a worker that exits on
// its own is restarted. In-flight requests on a replaced worker are lost and
// must be retried by the caller.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/ossira/launchkit/models"
)

// Config shapes the supervised process pool. The worker count is fixed for
// the lifetime of the supervisor; there is no dynamic resizing.
type Config struct {
	BindHost string
	BindPort int
	Workers  int

	// Timeout is the heartbeat window. A worker silent for longer is
	// presumed stuck and killed.
	Timeout time.Duration

	// GracePeriod bounds how long shutdown waits for workers to exit after
	// SIGTERM before killing them.
	GracePeriod time.Duration

	Logger *slog.Logger

	// Command builds one worker process. Nil means re-exec the current
	// binary; worker mode is selected by the environment the supervisor
	// injects.
	Command func() *exec.Cmd
}

// FromLaunchCommand maps the declared production launch command onto a
// supervisor config.
func FromLaunchCommand(lc models.LaunchCommand) Config {
	return Config{
		BindHost:    lc.BindHost,
		BindPort:    lc.BindPort,
		Workers:     lc.Workers,
		Timeout:     time.Duration(lc.TimeoutSeconds) * time.Second,
		GracePeriod: 10 * time.Second,
	}
}

type exitEvent struct {
	slot int
	err  error
}

type workerProc struct {
	slot int
	cmd  *exec.Cmd

	mu       sync.Mutex
	lastBeat time.Time
}

func (w *workerProc) beat(t time.Time) {
	w.mu.Lock()
	w.lastBeat = t
	w.mu.Unlock()
}

func (w *workerProc) sinceBeat(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastBeat)
}

type Supervisor struct {
	cfg    Config
	ln     net.Listener
	lnFile *os.File

	mu      sync.Mutex
	workers map[int]*workerProc

	exits chan exitEvent
}

func New(cfg Config) (*Supervisor, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("worker count must be >= 1, got %d", cfg.Workers)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Supervisor{
		cfg:     cfg,
		workers: make(map[int]*workerProc, cfg.Workers),
		exits:   make(chan exitEvent, cfg.Workers*2),
	}, nil
}

// Run binds the socket, brings up the pool, and supervises it until ctx is
// cancelled. Binding an address already in use returns the error
// immediately; the caller exits non-zero with no retry.
func (s *Supervisor) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.BindHost, strconv.Itoa(s.cfg.BindPort))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	s.ln = ln
	defer ln.Close()

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return fmt.Errorf("listener on %s is not TCP", addr)
	}
	lnFile, err := tcpLn.File()
	if err != nil {
		return fmt.Errorf("dup listener fd: %w", err)
	}
	s.lnFile = lnFile
	defer lnFile.Close()

	s.cfg.Logger.Info("listening", "addr", addr, "workers", s.cfg.Workers)

	for slot := 0; slot < s.cfg.Workers; slot++ {
		if err := s.spawn(slot); err != nil {
			s.shutdown()
			return err
		}
	}

	// Check heartbeats well inside the timeout window.
	tick := s.cfg.Timeout / 4
	if tick > time.Second {
		tick = time.Second
	}
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil

		case ev := <-s.exits:
			s.mu.Lock()
			_, known := s.workers[ev.slot]
			delete(s.workers, ev.slot)
			s.mu.Unlock()
			if !known {
				continue
			}
			s.cfg.Logger.Warn("worker exited", "slot", ev.slot, "err", ev.err)
			// Standard supervisor behavior: replace, never retry the
			// requests the worker was holding.
			if err := s.spawn(ev.slot); err != nil {
				s.shutdown()
				return fmt.Errorf("respawn worker %d: %w", ev.slot, err)
			}

		case now := <-ticker.C:
			s.killStuckWorkers(now)
		}
	}
}

// WorkerPIDs reports the PIDs of the live workers, one per slot.
func (s *Supervisor) WorkerPIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pids := make([]int, 0, len(s.workers))
	for _, w := range s.workers {
		if w.cmd.Process != nil {
			pids = append(pids, w.cmd.Process.Pid)
		}
	}
	return pids
}

// Addr reports the bound address, valid once Run has bound the socket.
func (s *Supervisor) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Supervisor) spawn(slot int) error {
	heartbeatR, heartbeatW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("heartbeat pipe: %w", err)
	}

	var cmd *exec.Cmd
	if s.cfg.Command != nil {
		cmd = s.cfg.Command()
	} else {
		exe, err := os.Executable()
		if err != nil {
			heartbeatR.Close()
			heartbeatW.Close()
			return fmt.Errorf("resolve executable: %w", err)
		}
		cmd = exec.Command(exe)
	}

	// The worker inherits the shared socket as fd 3 and the heartbeat pipe
	// as fd 4; nothing else is shared between worker processes.
	cmd.ExtraFiles = []*os.File{s.lnFile, heartbeatW}
	cmd.Env = append(cmd.Environ(),
		listenerFDEnv+"=3",
		heartbeatFDEnv+"=4",
		workerSlotEnv+"="+strconv.Itoa(slot),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		heartbeatR.Close()
		heartbeatW.Close()
		return fmt.Errorf("start worker %d: %w", slot, err)
	}
	// Parent keeps only the read end.
	heartbeatW.Close()

	w := &workerProc{slot: slot, cmd: cmd, lastBeat: time.Now()}

	s.mu.Lock()
	s.workers[slot] = w
	s.mu.Unlock()

	s.cfg.Logger.Info("worker started", "slot", slot, "pid", cmd.Process.Pid)

	go func() {
		defer heartbeatR.Close()
		buf := make([]byte, 64)
		for {
			if _, err := heartbeatR.Read(buf); err != nil {
				return // pipe closes when the worker dies
			}
			w.beat(time.Now())
		}
	}()

	go func() {
		err := cmd.Wait()
		s.exits <- exitEvent{slot: slot, err: err}
	}()

	return nil
}

func (s *Supervisor) killStuckWorkers(now time.Time) {
	s.mu.Lock()
	var stuck []*workerProc
	for _, w := range s.workers {
		if w.sinceBeat(now) > s.cfg.Timeout {
			stuck = append(stuck, w)
		}
	}
	s.mu.Unlock()

	for _, w := range stuck {
		pid := -1
		if w.cmd.Process != nil {
			pid = w.cmd.Process.Pid
		}
		s.cfg.Logger.Warn("worker timed out, killing", "slot", w.slot, "pid", pid, "timeout", s.cfg.Timeout)
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
		// The exit event respawns the slot.
	}
}

// shutdown terminates the pool: SIGTERM, wait up to the grace period, then
// SIGKILL the stragglers.
func (s *Supervisor) shutdown() {
	s.mu.Lock()
	workers := make([]*workerProc, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.workers = make(map[int]*workerProc)
	s.mu.Unlock()

	for _, w := range workers {
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Signal(syscall.SIGTERM)
		}
	}

	deadline := time.After(s.cfg.GracePeriod)
	remaining := len(workers)
	for remaining > 0 {
		select {
		case <-s.exits:
			remaining--
		case <-deadline:
			for _, w := range workers {
				if w.cmd.Process != nil {
					_ = w.cmd.Process.Kill()
				}
			}
			for remaining > 0 {
				<-s.exits
				remaining--
			}
		}
	}
}

// ErrNotWorker reports a worker entry point invoked outside a supervisor.
var ErrNotWorker = errors.New("supervisor: not running as a worker process")
