package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Accuracy returns the fraction of rows whose argmax matches the target
// class. Logits are (batch, classes); targets are (batch) int32 indices.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float32 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("accuracy: logits must be 2D (batch, classes), got %v", shape))
	}
	batch, classes := shape[0], shape[1]
	if targets.NumElements() != batch {
		panic(fmt.Sprintf("accuracy: expected %d targets, got %d", batch, targets.NumElements()))
	}
	if batch == 0 {
		return 0
	}

	data := logits.Data()
	labels := targets.Data()
	correct := 0
	for b := 0; b < batch; b++ {
		row := data[b*classes : (b+1)*classes]
		best := 0
		for i, v := range row {
			if v > row[best] {
				best = i
			}
		}
		if int32(best) == labels[b] {
			correct++
		}
	}
	return float32(correct) / float32(batch)
}
