// Package playerhost implements component I: launching one sandboxed AI
// worker process per colony and round-tripping SETUP/UPDATE requests over a
// local byte-stream socket, framed to the published C ABI.
package playerhost

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Obeeron/pherowar/internal/abi"
	"github.com/Obeeron/pherowar/internal/pwlog"
	"github.com/Obeeron/pherowar/internal/simerr"
)

// UpdateDeadline bounds a single UPDATE round trip. Exceeding it drops this
// tick's action for the ant without killing it; the worker process is
// restarted to resynchronize the frame stream, but independently of the
// crash/reload budget (see Update).
const UpdateDeadline = 20 * time.Millisecond

// ConnectRetries/ConnectRetryDelay bound how long the host waits for a
// freshly launched worker to bind its socket.
const (
	ConnectRetries    = 30
	ConnectRetryDelay = 100 * time.Millisecond
)

// WorkerBinary is the path to the cmd/pherowar-worker executable; overridable
// for tests.
var WorkerBinary = "pherowar-worker"

// CPULimitSeconds is the RLIMIT_CPU the worker process self-applies at
// startup, approximating the sandbox's documented ~0.25 CPU quota (a true
// cgroup-enforced fractional quota would require a container runtime; this
// bounds total CPU time consumed instead of throttling it, the closest
// approximation available without root).
const CPULimitSeconds = 30

// Worker is one colony's sandboxed AI process handle. It satisfies
// colony.PlayerHandle.
type Worker struct {
	colonyID   int32
	soPath     string
	socketDir  string
	socketPath string
	logPath    string

	mu      sync.Mutex
	cmd     *exec.Cmd
	conn    net.Conn
	logFile *os.File
	setup   abi.PlayerSetup
	aiLess  bool
	reloads int
}

// Colony implements colony.PlayerHandle.
func (w *Worker) Colony() int32 { return w.colonyID }

// Alive implements colony.PlayerHandle: reports whether the colony still
// has a usable AI (false once it has fallen back to neutral output after a
// failed reload).
func (w *Worker) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.aiLess
}

// Setup returns the PlayerSetup the worker returned, valid once Launch
// succeeds.
func (w *Worker) Setup() abi.PlayerSetup {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.setup
}

// Launch starts a fresh sandboxed worker process for soPath and completes
// its SETUP handshake. On failure the colony is marked AI-less per the
// WorkerLaunchFailed policy; Launch itself still returns the error so the
// caller can log it.
func Launch(colonyID int32, soPath string) (*Worker, error) {
	sessionID := uuid.NewString()
	socketDir := filepath.Join(os.TempDir(), "pherowar-sockets", sessionID)
	if err := os.MkdirAll(socketDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: socket dir: %v", simerr.ErrWorkerLaunchFailed, err)
	}

	w := &Worker{
		colonyID:   colonyID,
		soPath:     soPath,
		socketDir:  socketDir,
		socketPath: filepath.Join(socketDir, "pherowar.sock"),
		logPath:    fmt.Sprintf("%s_%d_.log", filepath.Base(soPath), colonyID),
	}

	if err := w.start(); err != nil {
		w.aiLess = true
		return w, fmt.Errorf("%w: %v", simerr.ErrWorkerLaunchFailed, err)
	}
	return w, nil
}

func (w *Worker) start() error {
	logFile, err := os.Create(w.logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	w.logFile = logFile

	cmd := exec.Command(WorkerBinary,
		"--so", w.soPath,
		"--socket", w.socketPath,
		"--cpu-limit-seconds", strconv.FormatUint(CPULimitSeconds, 10),
	)
	cmd.Stdout = io.MultiWriter(logFile)
	cmd.Stderr = io.MultiWriter(logFile)
	// Setpgid isolates the worker (and anything it forks) into its own
	// process group so the host can terminate the whole tree on reload.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.cmd = cmd

	var conn net.Conn
	for i := 0; i < ConnectRetries; i++ {
		conn, err = net.Dial("unix", w.socketPath)
		if err == nil {
			break
		}
		time.Sleep(ConnectRetryDelay)
	}
	if conn == nil {
		w.killLocked()
		return fmt.Errorf("connect to worker socket: %w", err)
	}
	w.conn = conn

	if err := abi.WriteFrame(w.conn, []byte{byte(abi.KindSetup)}); err != nil {
		w.killLocked()
		return fmt.Errorf("send setup request: %w", err)
	}
	raw, err := abi.ReadFrame(w.conn)
	if err != nil {
		w.killLocked()
		return fmt.Errorf("read setup response: %w", err)
	}
	setup, err := abi.UnmarshalPlayerSetup(raw)
	if err != nil {
		w.killLocked()
		return fmt.Errorf("decode setup response: %w", err)
	}
	w.setup = *setup
	w.aiLess = false
	pwlog.Log.WithFields(logrus.Fields{"colony_id": w.colonyID, "so_path": w.soPath}).Info("playerhost: worker ready")
	return nil
}

// Update runs one think-tick round trip for a single ant. On timeout it
// returns simerr.ErrWorkerTimeout and leaves memory/output untouched — the
// caller must drop this tick's action, not kill the ant. A timeout never
// spends the crash-reload budget: the connection is resynchronized by
// restarting the process, but a persistently slow-but-alive AI keeps getting
// single ticks dropped indefinitely rather than being permanently disabled.
// Only a genuine crash/disconnect consumes the one automatic reload; the
// budget is never refilled, so a second crash at any later point downgrades
// the colony to AI-less and Update keeps returning ErrWorkerCrashed from
// then on.
func (w *Worker) Update(input *abi.AntInput, memory [abi.MemorySize]byte) (*abi.AntOutput, [abi.MemorySize]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.aiLess {
		return nil, memory, simerr.ErrWorkerCrashed
	}

	out, mem, err := w.roundTrip(input, memory)
	if err == nil {
		return out, mem, nil
	}

	if errors.Is(err, simerr.ErrWorkerTimeout) {
		// A timed-out read can leave the byte stream frame-misaligned, so the
		// process is restarted to resynchronize it, but this never touches
		// w.reloads: an AI that is merely slow must keep getting dropped
		// ticks, not be exhausted into permanent AI-less fallback.
		pwlog.Log.WithFields(logrus.Fields{"colony_id": w.colonyID, "err": err}).Warn("playerhost: update timed out, dropping tick")
		w.killLocked()
		if startErr := w.start(); startErr != nil {
			w.aiLess = true
			return nil, memory, fmt.Errorf("%w: reload after timeout failed: %v", simerr.ErrWorkerCrashed, startErr)
		}
		return nil, memory, simerr.ErrWorkerTimeout
	}

	pwlog.Log.WithFields(logrus.Fields{"colony_id": w.colonyID, "err": err}).Warn("playerhost: update failed")

	if w.reloads >= 1 {
		w.aiLess = true
		w.killLocked()
		return nil, memory, fmt.Errorf("%w: %v", simerr.ErrWorkerCrashed, err)
	}

	w.reloads++
	w.killLocked()
	if startErr := w.start(); startErr != nil {
		w.aiLess = true
		return nil, memory, fmt.Errorf("%w: reload failed: %v", simerr.ErrWorkerCrashed, startErr)
	}
	return nil, memory, simerr.ErrWorkerTimeout
}

func (w *Worker) roundTrip(input *abi.AntInput, memory [abi.MemorySize]byte) (*abi.AntOutput, [abi.MemorySize]byte, error) {
	req := abi.UpdateRequest{Input: *input, Memory: memory}
	if err := w.conn.SetWriteDeadline(time.Now().Add(UpdateDeadline)); err != nil {
		return nil, memory, err
	}
	if err := abi.WriteFrame(w.conn, req.MarshalBinary()); err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, memory, fmt.Errorf("%w: %v", simerr.ErrWorkerTimeout, err)
		}
		return nil, memory, err
	}
	if err := w.conn.SetReadDeadline(time.Now().Add(UpdateDeadline)); err != nil {
		return nil, memory, err
	}
	raw, err := abi.ReadFrame(w.conn)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, memory, fmt.Errorf("%w: %v", simerr.ErrWorkerTimeout, err)
		}
		return nil, memory, err
	}
	resp, err := abi.UnmarshalUpdateResponse(raw)
	if err != nil {
		return nil, memory, err
	}
	resp.Output.SanitizeOutput(1e6)
	return &resp.Output, resp.Memory, nil
}

func (w *Worker) killLocked() {
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	if w.cmd != nil && w.cmd.Process != nil {
		// Negative pid signals the whole process group created via Setpgid.
		syscall.Kill(-w.cmd.Process.Pid, syscall.SIGKILL)
		w.cmd.Wait()
		w.cmd = nil
	}
}

// Close terminates the worker process and removes its socket directory.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.killLocked()
	if w.logFile != nil {
		w.logFile.Close()
	}
	os.RemoveAll(w.socketDir)
}
