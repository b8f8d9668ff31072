// Command pherowar-worker is the sandboxed process launched once per colony
// by internal/playerhost. It dlopens the colony's compiled AI shared object
// with ebitengine/purego (no cgo), resolves the setup/update C symbols, and
// speaks the length-prefixed abi protocol over a Unix domain socket handed
// to it by the host.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"

	"github.com/Obeeron/pherowar/internal/abi"
)

func main() {
	soPath := flag.String("so", "", "path to the AI shared object")
	socketPath := flag.String("socket", "", "unix domain socket path to serve")
	cpuSeconds := flag.Uint64("cpu-limit-seconds", 0, "RLIMIT_CPU applied to this process before loading the AI; 0 disables it")
	flag.Parse()

	if *soPath == "" || *socketPath == "" {
		fmt.Fprintln(os.Stderr, "pherowar-worker: --so and --socket are required")
		os.Exit(2)
	}

	if *cpuSeconds > 0 {
		lim := unix.Rlimit{Cur: *cpuSeconds, Max: *cpuSeconds}
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &lim); err != nil {
			fmt.Fprintf(os.Stderr, "pherowar-worker: setrlimit RLIMIT_CPU: %v\n", err)
		}
	}

	setupFn, updateFn, err := loadAI(*soPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pherowar-worker: %v\n", err)
		os.Exit(1)
	}

	os.Remove(*socketPath)
	ln, err := net.Listen("unix", *socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pherowar-worker: listen: %v\n", err)
		os.Exit(1)
	}
	defer ln.Close()

	conn, err := ln.Accept()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pherowar-worker: accept: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := serve(conn, setupFn, updateFn); err != nil {
		fmt.Fprintf(os.Stderr, "pherowar-worker: %v\n", err)
		os.Exit(1)
	}
}

// cSetupFunc/cUpdateFunc mirror the published C entry points:
//
//	void setup(uint8_t *out_player_setup);
//	void update(const uint8_t *in_ant_input, uint8_t *inout_memory, uint8_t *out_ant_output);
//
// Both take raw byte pointers rather than typed structs so the wire layout
// produced by internal/abi's marshaling can be handed across the boundary
// unchanged.
type cSetupFunc func(out uintptr)
type cUpdateFunc func(in, memory, out uintptr)

func loadAI(soPath string) (cSetupFunc, cUpdateFunc, error) {
	handle, err := purego.Dlopen(soPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, nil, fmt.Errorf("dlopen %s: %w", soPath, err)
	}

	var setupFn cSetupFunc
	purego.RegisterLibFunc(&setupFn, handle, "setup")
	var updateFn cUpdateFunc
	purego.RegisterLibFunc(&updateFn, handle, "update")
	return setupFn, updateFn, nil
}

func serve(conn net.Conn, setupFn cSetupFunc, updateFn cUpdateFunc) error {
	if _, err := abi.ReadFrame(conn); err != nil {
		return fmt.Errorf("read setup request: %w", err)
	}

	setupBuf := make([]byte, abi.PlayerSetupSize)
	setupFn(uintptr(unsafe.Pointer(&setupBuf[0])))
	if err := abi.WriteFrame(conn, setupBuf); err != nil {
		return fmt.Errorf("write setup response: %w", err)
	}

	for {
		raw, err := abi.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("read update request: %w", err)
		}
		req, err := abi.UnmarshalUpdateRequest(raw)
		if err != nil {
			return fmt.Errorf("decode update request: %w", err)
		}

		inBuf := req.Input.MarshalBinary()
		outBuf := make([]byte, abi.AntOutputSize)
		memBuf := make([]byte, abi.MemorySize)
		copy(memBuf, req.Memory[:])

		updateFn(
			uintptr(unsafe.Pointer(&inBuf[0])),
			uintptr(unsafe.Pointer(&memBuf[0])),
			uintptr(unsafe.Pointer(&outBuf[0])),
		)

		output, err := abi.UnmarshalAntOutput(outBuf)
		if err != nil {
			return fmt.Errorf("decode update output: %w", err)
		}
		resp := abi.UpdateResponse{Output: *output}
		copy(resp.Memory[:], memBuf)

		if err := abi.WriteFrame(conn, resp.MarshalBinary()); err != nil {
			return fmt.Errorf("write update response: %w", err)
		}
	}
}
