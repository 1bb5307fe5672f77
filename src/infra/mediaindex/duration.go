package mediaindex

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	goflac "github.com/go-flac/go-flac"
)

// audioProbe is what the index learns from a file's audio headers.
type audioProbe struct {
	durationMs  int64
	bitRateKbps int
	sampleRate  int
}

// nominalBitrates backs the file-size duration estimate for formats whose
// headers the index does not parse.
var nominalBitrates = map[string]int{
	".ogg": 160,
	".m4a": 192,
}

func probeDuration(f *os.File, size int64, ext string) (audioProbe, error) {
	switch ext {
	case ".flac":
		return probeFlac(f.Name(), size)
	case ".mp3":
		return probeMp3(f, size)
	case ".wav":
		return probeWav(f)
	default:
		kbps, ok := nominalBitrates[ext]
		if !ok {
			return audioProbe{}, fmt.Errorf("no duration probe for %s", ext)
		}
		return estimateFromSize(size, kbps), nil
	}
}

// estimateFromSize derives a rough duration from the file size and a nominal
// bitrate. Off by the compression ratio, but enough for the duration floor
// and the seekbar scale.
func estimateFromSize(size int64, kbps int) audioProbe {
	if kbps <= 0 {
		return audioProbe{}
	}
	return audioProbe{
		durationMs:  size * 8 / int64(kbps),
		bitRateKbps: kbps,
	}
}

// probeFlac reads the STREAMINFO block. Sample count and sample rate give the
// exact duration.
func probeFlac(path string, size int64) (audioProbe, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return audioProbe{}, err
	}

	for _, meta := range f.Meta {
		if meta.Type != goflac.StreamInfo {
			continue
		}
		if len(meta.Data) < 18 {
			return audioProbe{}, fmt.Errorf("short STREAMINFO block: %d bytes", len(meta.Data))
		}
		b := meta.Data
		sampleRate := int(b[10])<<12 | int(b[11])<<4 | int(b[12])>>4
		totalSamples := int64(b[12]&0x0F)<<32 | int64(b[13])<<24 | int64(b[14])<<16 | int64(b[15])<<8 | int64(b[16])
		if sampleRate == 0 || totalSamples == 0 {
			return audioProbe{}, fmt.Errorf("STREAMINFO missing sample counts")
		}
		durationMs := totalSamples * 1000 / int64(sampleRate)
		probe := audioProbe{durationMs: durationMs, sampleRate: sampleRate}
		if durationMs > 0 {
			probe.bitRateKbps = int(size * 8 / durationMs)
		}
		return probe, nil
	}
	return audioProbe{}, fmt.Errorf("no STREAMINFO block")
}

var (
	mp3BitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
	mp3BitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160}
	mp3Rates      = [4]int{44100, 48000, 32000, 0}
)

// probeMp3 finds the first frame header. A Xing/Info tag gives the exact
// frame count for VBR files; otherwise the first frame's bitrate is treated
// as constant.
func probeMp3(f *os.File, size int64) (audioProbe, error) {
	// Headers live right after the ID3v2 tag, read a generous window.
	buf := make([]byte, 256*1024)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return audioProbe{}, err
	}
	buf = buf[:n]

	offset := 0
	if len(buf) >= 10 && buf[0] == 'I' && buf[1] == 'D' && buf[2] == '3' {
		tagSize := int(buf[6]&0x7F)<<21 | int(buf[7]&0x7F)<<14 | int(buf[8]&0x7F)<<7 | int(buf[9]&0x7F)
		offset = 10 + tagSize
	}

	for ; offset+4 < len(buf); offset++ {
		if buf[offset] != 0xFF || buf[offset+1]&0xE0 != 0xE0 {
			continue
		}
		version := buf[offset+1] >> 3 & 0x03 // 3=MPEG1, 2=MPEG2, 0=MPEG2.5
		layer := buf[offset+1] >> 1 & 0x03   // 1=Layer III
		if version == 1 || layer != 1 {
			continue
		}
		bitrateIdx := buf[offset+2] >> 4
		rateIdx := buf[offset+2] >> 2 & 0x03
		if bitrateIdx == 0 || bitrateIdx == 15 || rateIdx == 3 {
			continue
		}

		kbps := mp3BitratesV1[bitrateIdx]
		sampleRate := mp3Rates[rateIdx]
		samplesPerFrame := int64(1152)
		if version != 3 {
			kbps = mp3BitratesV2[bitrateIdx]
			sampleRate /= 2
			samplesPerFrame = 576
			if version == 0 {
				sampleRate /= 2
			}
		}

		if frames, ok := xingFrameCount(buf[offset:], version, buf[offset+3]>>6); ok {
			durationMs := frames * samplesPerFrame * 1000 / int64(sampleRate)
			probe := audioProbe{durationMs: durationMs, sampleRate: sampleRate}
			if durationMs > 0 {
				probe.bitRateKbps = int((size - int64(offset)) * 8 / durationMs)
			}
			return probe, nil
		}

		return audioProbe{
			durationMs:  (size - int64(offset)) * 8 / int64(kbps),
			bitRateKbps: kbps,
			sampleRate:  sampleRate,
		}, nil
	}
	return audioProbe{}, fmt.Errorf("no frame header in first %d bytes", len(buf))
}

// xingFrameCount reads the VBR frame count from a Xing or Info tag inside the
// first frame, when present.
func xingFrameCount(frame []byte, version, channelMode byte) (int64, bool) {
	// Side-info size positions the tag after the frame header.
	offset := 4 + 32
	if channelMode == 3 { // mono
		offset = 4 + 17
	}
	if version != 3 { // MPEG2/2.5
		offset = 4 + 17
		if channelMode == 3 {
			offset = 4 + 9
		}
	}
	if len(frame) < offset+16 {
		return 0, false
	}
	tag := string(frame[offset : offset+4])
	if tag != "Xing" && tag != "Info" {
		return 0, false
	}
	flags := binary.BigEndian.Uint32(frame[offset+4 : offset+8])
	if flags&0x1 == 0 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint32(frame[offset+8 : offset+12])), true
}

// probeWav walks the RIFF chunks for fmt and data.
func probeWav(f *os.File) (audioProbe, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil {
		return audioProbe{}, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return audioProbe{}, fmt.Errorf("not a RIFF WAVE file")
	}

	var byteRate uint32
	var sampleRate uint32
	var dataSize uint32
	chunk := make([]byte, 8)
	for {
		if _, err := io.ReadFull(f, chunk); err != nil {
			break
		}
		id := string(chunk[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunk[4:8])
		switch id {
		case "fmt ":
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, fmtData); err != nil {
				return audioProbe{}, err
			}
			if chunkSize >= 16 {
				sampleRate = binary.LittleEndian.Uint32(fmtData[4:8])
				byteRate = binary.LittleEndian.Uint32(fmtData[8:12])
			}
		case "data":
			dataSize = chunkSize
			if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return audioProbe{}, err
			}
		default:
			if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return audioProbe{}, err
			}
		}
		if byteRate != 0 && dataSize != 0 {
			break
		}
	}
	if byteRate == 0 || dataSize == 0 {
		return audioProbe{}, fmt.Errorf("missing fmt or data chunk")
	}
	return audioProbe{
		durationMs:  int64(dataSize) * 1000 / int64(byteRate),
		bitRateKbps: int(byteRate * 8 / 1000),
		sampleRate:  int(sampleRate),
	}, nil
}
