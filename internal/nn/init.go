package nn

import (
	"math"
	"math/rand"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// XavierUniform fills t with values drawn uniformly from
// [-limit, limit] where limit = sqrt(6 / (fanIn + fanOut)).
//
// Keeps activation variance roughly constant across layers, which is
// what makes deep stacks of Linear+activation trainable from a cold
// start.
func XavierUniform[B tensor.Backend](t *tensor.Tensor[float32, B], fanIn, fanOut int) {
	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	data := t.Data()
	for i := range data {
		data[i] = (rand.Float32()*2 - 1) * limit //nolint:gosec // statistical use
	}
}

// NormalInit fills t with values drawn from N(0, std²).
func NormalInit[B tensor.Backend](t *tensor.Tensor[float32, B], std float32) {
	data := t.Data()
	for i := range data {
		data[i] = float32(rand.NormFloat64()) * std //nolint:gosec // statistical use
	}
}
