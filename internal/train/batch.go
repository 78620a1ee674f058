package train

import "fmt"

// Batches partitions n samples into contiguous [start, end) ranges of
// size batchSize, in dataset order. The last batch may be shorter. No
// shuffling: batch order follows sample order.
//
// Example:
//
//	train.Batches(11, 5) // [{0 5} {5 10} {10 11}]
func Batches(n, batchSize int) [][2]int {
	if n <= 0 {
		panic(fmt.Sprintf("batches: sample count must be positive, got %d", n))
	}
	if batchSize <= 0 {
		panic(fmt.Sprintf("batches: batch size must be positive, got %d", batchSize))
	}

	bounds := make([][2]int, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		bounds = append(bounds, [2]int{start, end})
	}
	return bounds
}

// Split partitions n samples into a training prefix and an evaluation
// suffix. trainFraction is clamped to [0, 1]; the split point rounds
// down. The dataset is immutable after the split: both halves keep the
// original sample order.
func Split(n int, trainFraction float64) (trainEnd, evalStart int) {
	if trainFraction < 0 {
		trainFraction = 0
	}
	if trainFraction > 1 {
		trainFraction = 1
	}
	trainEnd = int(float64(n) * trainFraction)
	return trainEnd, trainEnd
}
