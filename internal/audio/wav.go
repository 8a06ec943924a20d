package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// PCM holds decoded, interleaved samples in the normalized [-1,1] range
type PCM struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the length of the buffer in seconds
func (p *PCM) Duration() float64 {
	if p.SampleRate == 0 || p.Channels == 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate*p.Channels)
}

// EncodeWAV writes interleaved float samples as a minimal 16-bit PCM WAV file
func EncodeWAV(samples []float32, sampleRate, channels int) []byte {
	if channels <= 0 {
		channels = 1
	}

	var buf bytes.Buffer

	bitsPerSample := 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(samples) * 2

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))

	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, SampleToInt16(s))
	}

	return buf.Bytes()
}

// SampleToInt16 converts a normalized sample to 16-bit PCM, clamping to [-1,1]
func SampleToInt16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * 32767)
}

// DecodeWAV parses a 16-bit PCM WAV file. Unknown chunks are skipped. A data
// chunk that claims more bytes than the file holds is read up to the end,
// which is what streaming encoders produce.
func DecodeWAV(data []byte) (*PCM, error) {
	r := bytes.NewReader(data)

	var header struct {
		RIFF [4]byte
		Size uint32
		WAVE [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(header.RIFF[:]) != "RIFF" || string(header.WAVE[:]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	var (
		format     uint16
		channels   uint16
		sampleRate uint32
		bits       uint16
		haveFmt    bool
	)

	for {
		var id [4]byte
		var chunkSize uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("missing data chunk")
			}
			return nil, fmt.Errorf("failed to read chunk: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, fmt.Errorf("failed to read chunk size: %w", err)
		}

		switch string(id[:]) {
		case "fmt ":
			if chunkSize < 16 {
				return nil, errors.New("fmt chunk too short")
			}
			if int64(chunkSize) > int64(r.Len()) {
				return nil, fmt.Errorf("fmt chunk size %d exceeds remaining %d bytes", chunkSize, r.Len())
			}
			chunk := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, chunk); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if chunkSize%2 == 1 {
				r.Seek(1, io.SeekCurrent)
			}
			format = binary.LittleEndian.Uint16(chunk[0:2])
			channels = binary.LittleEndian.Uint16(chunk[2:4])
			sampleRate = binary.LittleEndian.Uint32(chunk[4:8])
			bits = binary.LittleEndian.Uint16(chunk[14:16])
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			if format != 1 || bits != 16 {
				return nil, fmt.Errorf("unsupported WAV format %d with %d bits", format, bits)
			}
			if channels == 0 {
				return nil, errors.New("WAV declares zero channels")
			}
			n := int64(chunkSize) / 2
			if rem := int64(r.Len()) / 2; n > rem {
				n = rem
			}
			samples := make([]float32, n)
			raw := make([]int16, n)
			if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
				return nil, fmt.Errorf("failed to read samples: %w", err)
			}
			for i, v := range raw {
				samples[i] = float32(v) / 32767
			}
			return &PCM{Samples: samples, SampleRate: int(sampleRate), Channels: int(channels)}, nil
		default:
			skip := int64(chunkSize) + int64(chunkSize%2)
			if skip > int64(r.Len()) {
				return nil, fmt.Errorf("chunk %q size %d exceeds remaining %d bytes", id[:], chunkSize, r.Len())
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("failed to skip chunk: %w", err)
			}
		}
	}
}
