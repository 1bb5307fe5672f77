package mediaindex

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name string, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestProbeMp3_ConstantBitrateEstimate(t *testing.T) {
	// One MPEG1 Layer III frame header: 128 kbps, 44100 Hz, no Xing tag.
	data := make([]byte, 160_000)
	copy(data, []byte{0xFF, 0xFB, 0x90, 0x00})

	f := writeTempFile(t, "cbr.mp3", data)
	probe, err := probeMp3(f, int64(len(data)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if probe.bitRateKbps != 128 {
		t.Errorf("expected 128 kbps, got %d", probe.bitRateKbps)
	}
	if probe.sampleRate != 44100 {
		t.Errorf("expected 44100 Hz, got %d", probe.sampleRate)
	}
	// 160000 bytes at 128 kbps is exactly 10 seconds.
	if probe.durationMs != 10_000 {
		t.Errorf("expected 10000 ms, got %d", probe.durationMs)
	}
}

func TestProbeMp3_SkipsID3Prefix(t *testing.T) {
	// 100-byte ID3v2 tag, then the same frame header.
	data := make([]byte, 100_000)
	copy(data, []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 90})
	copy(data[100:], []byte{0xFF, 0xFB, 0x90, 0x00})

	f := writeTempFile(t, "tagged.mp3", data)
	probe, err := probeMp3(f, int64(len(data)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if probe.bitRateKbps != 128 {
		t.Errorf("expected 128 kbps, got %d", probe.bitRateKbps)
	}
}

func TestProbeMp3_NoFrameHeader(t *testing.T) {
	f := writeTempFile(t, "junk.mp3", make([]byte, 4096))
	if _, err := probeMp3(f, 4096); err == nil {
		t.Error("expected an error for a file without frame headers")
	}
}

func TestProbeWav_ReadsFmtAndDataChunks(t *testing.T) {
	var data []byte
	data = append(data, []byte("RIFF")...)
	data = append(data, 0, 0, 0, 0)
	data = append(data, []byte("WAVE")...)

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], 1)       // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:4], 2)       // stereo
	binary.LittleEndian.PutUint32(fmtChunk[4:8], 44100)   // sample rate
	binary.LittleEndian.PutUint32(fmtChunk[8:12], 176400) // byte rate
	binary.LittleEndian.PutUint16(fmtChunk[12:14], 4)
	binary.LittleEndian.PutUint16(fmtChunk[14:16], 16)
	data = append(data, []byte("fmt ")...)
	data = append(data, 16, 0, 0, 0)
	data = append(data, fmtChunk...)

	data = append(data, []byte("data")...)
	dataSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(dataSize, 352800) // two seconds
	data = append(data, dataSize...)

	f := writeTempFile(t, "tone.wav", data)
	probe, err := probeWav(f)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if probe.durationMs != 2000 {
		t.Errorf("expected 2000 ms, got %d", probe.durationMs)
	}
	if probe.sampleRate != 44100 {
		t.Errorf("expected 44100 Hz, got %d", probe.sampleRate)
	}
}

func TestEstimateFromSize(t *testing.T) {
	probe := estimateFromSize(2_000_000, 160)
	if probe.durationMs != 100_000 {
		t.Errorf("expected 100000 ms, got %d", probe.durationMs)
	}
	if got := estimateFromSize(1000, 0); got.durationMs != 0 {
		t.Errorf("expected zero probe for zero bitrate, got %+v", got)
	}
}
