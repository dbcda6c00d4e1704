package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Field blobs are little-endian cell arrays compressed with zstd.
// EncodeAll and DecodeAll are safe for concurrent use, so one encoder and
// one decoder serve the whole process.
var codecs = sync.OnceValues(func() (*frameCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &frameCodec{enc: enc, dec: dec}, nil
})

type frameCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func encodeFloats(values []float64) ([]byte, error) {
	c, err := codecs()
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return c.enc.EncodeAll(raw, nil), nil
}

func decodeFloats(blob []byte, n int) ([]float64, error) {
	raw, err := decodeBlob(blob, 8*n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return out, nil
}

func encodeBytes(values []uint8) ([]byte, error) {
	c, err := codecs()
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(values, nil), nil
}

func decodeBytes(blob []byte, n int) ([]uint8, error) {
	return decodeBlob(blob, n)
}

func decodeBlob(blob []byte, size int) ([]byte, error) {
	c, err := codecs()
	if err != nil {
		return nil, err
	}
	raw, err := c.dec.DecodeAll(blob, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("decompressing field: %w", err)
	}
	if len(raw) != size {
		return nil, fmt.Errorf("field blob has %d bytes, want %d", len(raw), size)
	}
	return raw, nil
}
