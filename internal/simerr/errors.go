// Package simerr defines the engine's error taxonomy so that Player Host
// failures can be identified with errors.Is and handled per policy instead
// of propagating and stalling the simulation.
package simerr

import "errors"

var (
	// ErrMapInvalid is returned when a map file or ingest document is malformed.
	ErrMapInvalid = errors.New("map invalid")

	// ErrWorkerLaunchFailed is returned when a colony's AI worker process
	// could not be started.
	ErrWorkerLaunchFailed = errors.New("worker launch failed")

	// ErrWorkerTimeout is returned when an UPDATE round-trip exceeded its
	// deadline. The caller must drop the tick's action, not kill the ant.
	ErrWorkerTimeout = errors.New("worker timeout")

	// ErrWorkerCrashed is returned when a worker process exited or its
	// socket connection was lost mid-session.
	ErrWorkerCrashed = errors.New("worker crashed")

	// ErrProtocolMismatch is returned when a framed message's declared size
	// or version does not match what the host expects.
	ErrProtocolMismatch = errors.New("protocol mismatch")

	// ErrInvalidOutput names the case of an AntOutput containing NaN/Inf
	// values that required clamping. No code path returns it:
	// AntOutput.SanitizeOutput clamps in place and reports it with a bool.
	ErrInvalidOutput = errors.New("invalid ai output")

	// ErrInvariantViolation marks a best-effort-repaired internal invariant
	// breach (e.g. an ant ended up on a wall cell).
	ErrInvariantViolation = errors.New("internal invariant violation")
)
