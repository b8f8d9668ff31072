package playerhost

import (
	"errors"
	"net"
	"testing"

	"github.com/Obeeron/pherowar/internal/abi"
	"github.com/Obeeron/pherowar/internal/simerr"
)

// These tests drive Worker.Update directly over an in-memory net.Pipe,
// bypassing Launch/start (which execs a real sandboxed process) so the
// protocol round-trip and failure-recovery bookkeeping can be verified
// without any external binary.

func TestUpdateRoundTripAppliesResponse(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	w := &Worker{conn: client}

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		raw, err := abi.ReadFrame(server)
		if err != nil {
			t.Errorf("server ReadFrame: %v", err)
			return
		}
		req, err := abi.UnmarshalUpdateRequest(raw)
		if err != nil {
			t.Errorf("server UnmarshalUpdateRequest: %v", err)
			return
		}
		resp := abi.UpdateResponse{Output: abi.AntOutput{TurnAngle: 0.25}, Memory: req.Memory}
		if err := abi.WriteFrame(server, resp.MarshalBinary()); err != nil {
			t.Errorf("server WriteFrame: %v", err)
		}
	}()

	var memory [abi.MemorySize]byte
	memory[0] = 0x42
	out, gotMem, err := w.Update(&abi.AntInput{Longevity: 10}, memory)
	<-serverDone

	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if out.TurnAngle != 0.25 {
		t.Fatalf("TurnAngle = %v, want 0.25", out.TurnAngle)
	}
	if gotMem != memory {
		t.Fatalf("echoed memory mismatch: got %v, want %v", gotMem, memory)
	}
}

func TestUpdateAfterReloadBudgetExhaustedMarksAILess(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	// A closed peer makes the round trip fail immediately with a non-timeout
	// error (io.ErrClosedPipe), simulating a genuine crash/disconnect rather
	// than a slow-but-alive AI.
	server.Close()
	// reloads already at its budget: any further crash must go straight to
	// the terminal AI-less state instead of attempting another reload
	// (which would otherwise exec a real worker process).
	w := &Worker{conn: client, reloads: 1}

	_, _, err := w.Update(&abi.AntInput{}, [abi.MemorySize]byte{})

	if !errors.Is(err, simerr.ErrWorkerCrashed) {
		t.Fatalf("expected ErrWorkerCrashed, got %v", err)
	}
	if w.Alive() {
		t.Fatal("worker should be AI-less once its reload budget is exhausted")
	}

	_, _, err = w.Update(&abi.AntInput{}, [abi.MemorySize]byte{})
	if !errors.Is(err, simerr.ErrWorkerCrashed) {
		t.Fatalf("an AI-less worker should keep reporting ErrWorkerCrashed, got %v", err)
	}
}

func TestUpdateTimeoutDoesNotSpendReloadBudget(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()
	// The peer never responds, so the round trip fails with a write/read
	// timeout. WorkerBinary points at a nonexistent binary, so the
	// timeout-triggered restart attempt fails too -- but the key assertion
	// is that the failure reached the timeout branch (not the crash/reload
	// counter) on the very first call, independent of any reload budget.
	orig := WorkerBinary
	WorkerBinary = "pherowar-worker-does-not-exist"
	defer func() { WorkerBinary = orig }()
	w := &Worker{conn: client}

	_, _, err := w.Update(&abi.AntInput{}, [abi.MemorySize]byte{})
	if !errors.Is(err, simerr.ErrWorkerTimeout) && !errors.Is(err, simerr.ErrWorkerCrashed) {
		t.Fatalf("expected a timeout-path error, got %v", err)
	}
	if w.reloads != 0 {
		t.Fatalf("a timeout must never spend the crash-reload budget, got reloads=%d", w.reloads)
	}
}
