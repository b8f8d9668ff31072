package abi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Obeeron/pherowar/internal/simerr"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{1, 2, 3, 4, 5}
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %v, want %v", got, payload)
	}
}

func TestReadFrameRejectsZeroLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	_, err := ReadFrame(&buf)
	if !errors.Is(err, simerr.ErrProtocolMismatch) {
		t.Fatalf("expected ErrProtocolMismatch, got %v", err)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0x7f})
	_, err := ReadFrame(&buf)
	if !errors.Is(err, simerr.ErrProtocolMismatch) {
		t.Fatalf("expected ErrProtocolMismatch, got %v", err)
	}
}

func TestUpdateRequestResponseRoundTrip(t *testing.T) {
	req := UpdateRequest{Input: AntInput{Longevity: 42}}
	req.Memory[0] = 0xAB

	got, err := UnmarshalUpdateRequest(req.MarshalBinary())
	if err != nil {
		t.Fatalf("UnmarshalUpdateRequest: %v", err)
	}
	if got.Input != req.Input || got.Memory != req.Memory {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}

	resp := UpdateResponse{Output: AntOutput{TurnAngle: 1.25}}
	resp.Memory[1] = 0xCD

	gotResp, err := UnmarshalUpdateResponse(resp.MarshalBinary())
	if err != nil {
		t.Fatalf("UnmarshalUpdateResponse: %v", err)
	}
	if gotResp.Output != resp.Output || gotResp.Memory != resp.Memory {
		t.Fatalf("round trip mismatch: got %+v, want %+v", gotResp, resp)
	}
}
