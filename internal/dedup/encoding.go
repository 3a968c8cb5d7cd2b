package dedup

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding serializes a float32 slice to a binary BLOB using little-endian encoding.
func EncodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeEmbedding deserializes a BLOB written by EncodeEmbedding. An empty
// BLOB decodes to nil; a length that is not a multiple of 4 is an error.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: embedding blob of %d bytes is not float32 aligned", ErrInputShape, len(b))
	}

	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
