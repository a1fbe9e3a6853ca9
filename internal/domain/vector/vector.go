// Package vector packs plot embeddings into the FLOAT32 blob layout of the Redis vector index.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PlotDim is the dimension of stored plot embeddings.
const PlotDim = 384

// PlotModel produced the stored plot embeddings. Query vectors from any other model live in a
// different space and make KNN results meaningless.
const PlotModel = "avsolatorio/GIST-small-Embedding-v0"

// Encode packs v as little-endian float32 bytes.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode unpacks little-endian float32 bytes. The length must be a multiple of 4.
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// CheckDim returns an error when v does not have dim components.
func CheckDim(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("vector has %d dimensions, expected %d", len(v), dim)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, 0 for mismatched or zero vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Neighbor is a nearest-neighbor hit: a catalog id and its index distance (smaller is closer).
type Neighbor struct {
	ID       int
	Distance float64
}
