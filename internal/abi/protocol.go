package abi

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Obeeron/pherowar/internal/simerr"
)

// maxFrameSize guards against a misbehaving or malicious worker declaring an
// absurd frame length; both UpdateRequest and UpdateResponse frames are small
// and fixed, so anything beyond this is a protocol violation.
const maxFrameSize = 4096

// MessageKind tags the single-byte discriminator sent before the SETUP
// handshake so the worker and host agree on what comes first. UPDATE frames
// need no discriminator: after setup, every frame is an UPDATE round-trip.
type MessageKind uint8

const (
	KindSetup MessageKind = iota
	KindUpdate
)

// WriteFrame writes a u32-little-endian length prefix followed by payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("abi: write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("abi: write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads a u32-little-endian length prefix followed by payload.
// A declared length outside (0, maxFrameSize] is treated as a protocol
// mismatch rather than an allocation hazard.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("abi: read frame length: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 || n > maxFrameSize {
		return nil, fmt.Errorf("%w: frame length %d", simerr.ErrProtocolMismatch, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("abi: read frame payload: %w", err)
	}
	return payload, nil
}

// UpdateRequest is the AntInput plus its carried memory, addressed to a
// specific ant within the colony's worker.
type UpdateRequest struct {
	Input  AntInput
	Memory [MemorySize]byte
}

// UpdateResponse is the AntOutput plus the ant's updated memory.
type UpdateResponse struct {
	Output AntOutput
	Memory [MemorySize]byte
}

// MarshalBinary encodes an UpdateRequest as AntInput bytes followed by the
// raw 32-byte memory block.
func (r *UpdateRequest) MarshalBinary() []byte {
	buf := make([]byte, 0, AntInputSize+MemorySize)
	buf = append(buf, r.Input.MarshalBinary()...)
	buf = append(buf, r.Memory[:]...)
	return buf
}

// UnmarshalUpdateRequest is the inverse of MarshalBinary.
func UnmarshalUpdateRequest(buf []byte) (*UpdateRequest, error) {
	if len(buf) != AntInputSize+MemorySize {
		return nil, fmt.Errorf("%w: update request has %d bytes, want %d",
			simerr.ErrProtocolMismatch, len(buf), AntInputSize+MemorySize)
	}
	input, err := UnmarshalAntInput(buf[:AntInputSize])
	if err != nil {
		return nil, err
	}
	req := &UpdateRequest{Input: *input}
	copy(req.Memory[:], buf[AntInputSize:])
	return req, nil
}

// MarshalBinary encodes an UpdateResponse as AntOutput bytes followed by the
// raw 32-byte memory block.
func (r *UpdateResponse) MarshalBinary() []byte {
	buf := make([]byte, 0, AntOutputSize+MemorySize)
	buf = append(buf, r.Output.MarshalBinary()...)
	buf = append(buf, r.Memory[:]...)
	return buf
}

// UnmarshalUpdateResponse is the inverse of MarshalBinary.
func UnmarshalUpdateResponse(buf []byte) (*UpdateResponse, error) {
	if len(buf) != AntOutputSize+MemorySize {
		return nil, fmt.Errorf("%w: update response has %d bytes, want %d",
			simerr.ErrProtocolMismatch, len(buf), AntOutputSize+MemorySize)
	}
	output, err := UnmarshalAntOutput(buf[:AntOutputSize])
	if err != nil {
		return nil, err
	}
	resp := &UpdateResponse{Output: *output}
	copy(resp.Memory[:], buf[AntOutputSize:])
	return resp, nil
}
