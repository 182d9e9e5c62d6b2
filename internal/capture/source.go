// Package capture manages the lifecycle of the external packet-capture
// child process and turns its delimited stdout into Packet records, per
// spec.md §4.1.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"firestige.xyz/netprobe/internal/config"
	"firestige.xyz/netprobe/internal/netprobe"
)

// ErrTimeout is returned by ReadLine when no line arrives before the
// deadline. It is a normal condition the caller loops on, per spec.md §4.1.
var ErrTimeout = errors.New("capture: read timeout")

// Source owns one child capture-tool process at a time.
type Source struct {
	cfg config.CaptureConfig

	mu      sync.Mutex
	cmd     *exec.Cmd
	lines   chan string
	exited  chan struct{}
	waitErr error
	running bool
}

// New creates a Source bound to cfg.
func New(cfg config.CaptureConfig) *Source {
	return &Source{cfg: cfg}
}

// Start launches the child process against the given interface.
func (s *Source) Start(iface string) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false, netprobe.ErrAlreadyRunning.Error()
	}

	toolPath := s.cfg.ToolPath
	if _, err := exec.LookPath(toolPath); err != nil {
		return false, netprobe.ErrToolMissing.Error()
	}

	if iface == "" {
		iface = s.cfg.DefaultIface
	}
	sep := s.cfg.FieldSeparator
	if sep == "" {
		sep = "|"
	}

	cmd := exec.Command(toolPath, BuildArgs(iface, sep)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, fmt.Sprintf("pipe setup failed: %v", err)
	}

	if err := cmd.Start(); err != nil {
		return false, netprobe.ErrToolMissing.Error()
	}

	s.cmd = cmd
	s.lines = make(chan string, 4096)
	s.exited = make(chan struct{})

	go s.readLoop(stdout)
	go s.waitLoop()

	probe := s.cfg.StartupProbe
	if probe <= 0 {
		probe = 500 * time.Millisecond
	}
	select {
	case <-s.exited:
		s.running = false
		return false, netprobe.ErrStartupFailed.Error()
	case <-time.After(probe):
	}

	s.running = true
	return true, "capture started"
}

func (s *Source) readLoop(stdout io.ReadCloser) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case s.lines <- scanner.Text():
		default:
			// Drop the line when the reader has fallen far behind and
			// the buffered channel is full.
		}
	}
	close(s.lines)
}

func (s *Source) waitLoop() {
	s.waitErr = s.cmd.Wait()
	close(s.exited)
}

// ReadLine performs a non-blocking, cooperative read with a per-call
// deadline. Timeout is a normal condition the Window Batcher loops on.
func (s *Source) ReadLine(deadline time.Duration) (string, error) {
	select {
	case line, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-s.exited:
		select {
		case line, ok := <-s.lines:
			if ok {
				return line, nil
			}
		default:
		}
		return "", io.EOF
	case <-time.After(deadline):
		return "", ErrTimeout
	}
}

// Stop terminates the child process group, escalating to a forced kill
// if it doesn't exit within the graceful timeout. Idempotent.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cmd == nil || s.cmd.Process == nil {
		s.running = false
		return nil
	}

	pgid := s.cmd.Process.Pid
	_ = unix.Kill(-pgid, syscall.SIGTERM)

	graceful := s.cfg.GracefulTimeout
	if graceful <= 0 {
		graceful = 3 * time.Second
	}

	select {
	case <-s.exited:
	case <-time.After(graceful):
		_ = unix.Kill(-pgid, syscall.SIGKILL)
		<-s.exited
	}

	s.running = false
	s.cmd = nil
	return nil
}

// IsRunning reports whether a capture process is currently live.
func (s *Source) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
