package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteWAVHeaderFloat32LE(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWAVHeaderFloat32LE(&buf, 44100); err != nil {
		t.Fatalf("WriteWAVHeaderFloat32LE() error = %v", err)
	}

	header := buf.Bytes()
	if len(header) != 44 {
		t.Fatalf("header length = %d, want 44", len(header))
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		t.Fatalf("header magic = %q %q", header[0:4], header[8:12])
	}
	if got := binary.LittleEndian.Uint16(header[20:22]); got != 3 {
		t.Errorf("audio format = %d, want 3 (IEEE float)", got)
	}
	if got := binary.LittleEndian.Uint16(header[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(header[24:28]); got != 44100 {
		t.Errorf("sample rate = %d, want 44100", got)
	}
	if got := binary.LittleEndian.Uint16(header[34:36]); got != 32 {
		t.Errorf("bits per sample = %d, want 32", got)
	}
	if got := binary.LittleEndian.Uint32(header[28:32]); got != 44100*4 {
		t.Errorf("byte rate = %d, want %d", got, 44100*4)
	}
	if got := binary.LittleEndian.Uint32(header[40:44]); got != 0xFFFFFFFF {
		t.Errorf("data size = %d, want streaming sentinel", got)
	}
}

func TestWriteWAVHeaderDefaultsSampleRate(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWAVHeaderFloat32LE(&buf, 0); err != nil {
		t.Fatalf("WriteWAVHeaderFloat32LE() error = %v", err)
	}
	if got := binary.LittleEndian.Uint32(buf.Bytes()[24:28]); got != 44100 {
		t.Fatalf("sample rate = %d, want default 44100", got)
	}
}
