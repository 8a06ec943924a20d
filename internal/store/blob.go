package store

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	codecRaw  = "raw"
	codecZstd = "zstd"
)

// blobCodec compresses audio at rest
type blobCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newBlobCodec() (*blobCodec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &blobCodec{encoder: encoder, decoder: decoder}, nil
}

// encode returns the stored form and its codec name. Compression is kept
// only when it saves space.
func (c *blobCodec) encode(data []byte) ([]byte, string) {
	if len(data) == 0 {
		return nil, codecRaw
	}
	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	if len(compressed) >= len(data) {
		return data, codecRaw
	}
	return compressed, codecZstd
}

func (c *blobCodec) decode(data []byte, codec string) ([]byte, error) {
	switch codec {
	case codecRaw, "":
		return data, nil
	case codecZstd:
		out, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress audio: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown audio codec: %s", codec)
	}
}

func (c *blobCodec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
