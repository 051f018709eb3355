package audio

import (
	"context"
	"encoding/binary"
	"testing"
)

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := make([]byte, 480)
	data, err := EncodeWAVPCM16LE(pcm, 24000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}

	if len(data) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(data), 44+len(pcm))
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 24000 {
		t.Fatalf("sample rate = %d, want 24000", rate)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", size, len(pcm))
	}
}

func TestEncodeWAVDefaultsSampleRate(t *testing.T) {
	data, err := EncodeWAVPCM16LE(make([]byte, 4), 0)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 24000 {
		t.Fatalf("default sample rate = %d, want 24000", rate)
	}
}

func TestMP3EncoderRejectsEmptyInput(t *testing.T) {
	e := NewMP3Encoder("")
	if err := e.Encode(context.Background(), nil, "out.mp3"); err == nil {
		t.Fatalf("Encode() should reject empty audio")
	}
}
