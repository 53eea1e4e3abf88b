package ffmpeg

import (
	"encoding/binary"
	"math"
	"os"
	"sync"
	"testing"
)

const (
	fixtureRate     = 44100
	fixtureChannels = 2
	fixtureSeconds  = 20
)

var (
	testLoaderOnce sync.Once
	testLoader     *Loader
)

// testLibrary returns the libraries in FFSHIM_FFMPEG_DIR, skipping the test
// when the variable is unset.
func testLibrary(t *testing.T) *Library {
	t.Helper()
	dir := os.Getenv("FFSHIM_FFMPEG_DIR")
	if dir == "" {
		t.Skip("FFSHIM_FFMPEG_DIR not set")
	}
	testLoaderOnce.Do(func() {
		testLoader = NewLoader(dir)
	})
	lib, err := testLoader.Library()
	if err != nil {
		t.Fatalf("failed to load FFmpeg from %s: %v", dir, err)
	}
	return lib
}

// writeSineWAV writes a 16-bit PCM sine tone.
func writeSineWAV(t *testing.T, path string, rate, channels, seconds int) {
	t.Helper()
	samples := rate * seconds
	dataSize := samples * channels * 2

	buf := make([]byte, 44+dataSize)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataSize))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:], uint32(rate*channels*2))
	binary.LittleEndian.PutUint16(buf[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataSize))

	off := 44
	for i := 0; i < samples; i++ {
		v := int16(math.Sin(2*math.Pi*440*float64(i)/float64(rate)) * 12000)
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(buf[off:], uint16(v))
			off += 2
		}
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// writeFloatSineWAV writes a 32-bit IEEE float sine tone, which decodes to
// a sample format the PCM encoder does not take directly.
func writeFloatSineWAV(t *testing.T, path string, rate, channels, seconds int) {
	t.Helper()
	samples := rate * seconds
	dataSize := samples * channels * 4

	buf := make([]byte, 44, 44+dataSize)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataSize))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 3)
	binary.LittleEndian.PutUint16(buf[22:], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:], uint32(rate*channels*4))
	binary.LittleEndian.PutUint16(buf[32:], uint16(channels*4))
	binary.LittleEndian.PutUint16(buf[34:], 32)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataSize))

	for i := 0; i < samples; i++ {
		v := float32(math.Sin(2*math.Pi*440*float64(i)/float64(rate)) * 0.4)
		for c := 0; c < channels; c++ {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

type wavInfo struct {
	rate       uint32
	channels   uint16
	blockAlign uint16
	dataSize   uint32
	data       []byte
}

func (w wavInfo) samples() int64 {
	return int64(w.dataSize) / int64(w.blockAlign)
}

func (w wavInfo) seconds() float64 {
	return float64(w.dataSize) / float64(w.blockAlign) / float64(w.rate)
}

// readWAVInfo walks the RIFF chunks of path for the fmt and data headers.
func readWAVInfo(t *testing.T, path string) wavInfo {
	t.Helper()
	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if len(buf) < 12 || string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		t.Fatalf("%s is not a WAV file", path)
	}

	var info wavInfo
	for off := 12; off+8 <= len(buf); {
		id := string(buf[off : off+4])
		size := binary.LittleEndian.Uint32(buf[off+4:])
		body := buf[off+8:]
		switch id {
		case "fmt ":
			info.channels = binary.LittleEndian.Uint16(body[2:])
			info.rate = binary.LittleEndian.Uint32(body[4:])
			info.blockAlign = binary.LittleEndian.Uint16(body[12:])
		case "data":
			info.dataSize = size
			info.data = body[:min(int(size), len(body))]
			return info
		}
		off += 8 + int(size) + int(size&1)
	}
	t.Fatalf("%s has no data chunk", path)
	return info
}

func requireNoLiveHandles(t *testing.T, lib *Library) {
	t.Helper()
	stats := lib.HandleStats()
	if n := stats.TotalLive(); n != 0 {
		for k, v := range stats.Live {
			if v != 0 {
				t.Logf("%s: %d live", HandleKind(k), v)
			}
		}
		t.Errorf("TotalLive() = %d, want 0", n)
	}
}
