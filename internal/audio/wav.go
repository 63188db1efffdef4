package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

type wavFormat struct {
	AudioFormat int
	SampleRate  int
	Channels    int
	BitDepth    int
}

var errUnsupportedFormat = errors.New("unsupported wav format")

// parseWAV returns the fmt chunk and the raw PCM from a RIFF/WAVE file.
func parseWAV(data []byte) (wavFormat, []byte, error) {
	var format wavFormat
	r := bytes.NewReader(data)

	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return format, nil, fmt.Errorf("reading wav header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return format, nil, errors.New("not a RIFF/WAVE file")
	}

	haveFmt := false
	for {
		var id [4]byte
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return format, nil, errors.New("wav file has no data chunk")
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return format, nil, fmt.Errorf("reading chunk size: %w", err)
		}

		switch string(id[:]) {
		case "fmt ":
			if size < 16 {
				return format, nil, fmt.Errorf("fmt chunk too short (%d bytes)", size)
			}
			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return format, nil, fmt.Errorf("reading fmt chunk: %w", err)
			}
			format = wavFormat{
				AudioFormat: int(fmtChunk.AudioFormat),
				SampleRate:  int(fmtChunk.SampleRate),
				Channels:    int(fmtChunk.Channels),
				BitDepth:    int(fmtChunk.BitsPerSample),
			}
			haveFmt = true
			if _, err := r.Seek(int64(size-16)+int64(size%2), io.SeekCurrent); err != nil {
				return format, nil, err
			}
		case "data":
			if !haveFmt {
				return format, nil, errors.New("wav data chunk precedes fmt chunk")
			}
			n := int(size)
			if n > r.Len() {
				n = r.Len()
			}
			pcm := make([]byte, n)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return format, nil, fmt.Errorf("reading wav data: %w", err)
			}
			return format, pcm, nil
		default:
			if _, err := r.Seek(int64(size)+int64(size%2), io.SeekCurrent); err != nil {
				return format, nil, err
			}
		}
	}
}

// checkFormat reports whether the PCM can be fed to the shared device output as is.
func checkFormat(f wavFormat, sampleRate, channels int) error {
	if f.AudioFormat != 1 || f.BitDepth != 16 || f.SampleRate != sampleRate || f.Channels != channels {
		return fmt.Errorf("%w: format=%d %d Hz %d ch %d-bit (want PCM %d Hz %d ch 16-bit)",
			errUnsupportedFormat, f.AudioFormat, f.SampleRate, f.Channels, f.BitDepth, sampleRate, channels)
	}
	return nil
}

// synthTone renders a sine beep as interleaved s16le PCM with short fades at
// both ends so it does not click.
func synthTone(freq float64, length time.Duration, sampleRate, channels int) []byte {
	frames := int(float64(sampleRate) * length.Seconds())
	fade := sampleRate / 100 // 10ms
	buf := make([]byte, frames*channels*2)

	for i := 0; i < frames; i++ {
		amp := 0.5
		if i < fade {
			amp *= float64(i) / float64(fade)
		} else if frames-i < fade {
			amp *= float64(frames-i) / float64(fade)
		}
		v := int16(amp * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(buf[(i*channels+c)*2:], uint16(v))
		}
	}
	return buf
}

// encodeWAV wraps s16le PCM in a minimal RIFF/WAVE container.
func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	var b bytes.Buffer
	blockAlign := channels * 2
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}
