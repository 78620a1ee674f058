// Package main provides the Kiln ML Framework CLI.
package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/optim"
	"github.com/kiln-ml/kiln/internal/tensor"
	"github.com/kiln-ml/kiln/internal/train"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Kiln ML Framework %s\n", version)
			return
		case "selfcheck":
			if err := selfCheck(os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "selfcheck: FAIL: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("selfcheck: PASS")
			return
		}
	}

	fmt.Println("Kiln ML Framework - Adaptive Training for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version      Show version")
	fmt.Println("  selfcheck    Train y = 2x end to end and verify the fit")
	fmt.Println("")
	fmt.Println("See the examples/ directory for training walkthroughs.")
}

// selfCheckResult holds the outcome of the built-in training scenario.
type selfCheckResult struct {
	history []float32
	weight  float32
	bias    float32
}

// selfCheck fits y = 2x with the adaptive loop and verifies the run
// behaved: the loss dropped by two orders of magnitude and the fitted
// weight landed near 2.
func selfCheck(progress io.Writer) error {
	result, err := runLinearFit(50, 0.01)
	if err != nil {
		return err
	}

	if progress != nil {
		fmt.Fprintf(progress, "epochs: %d, loss %.6f -> %.6f, fit y = %.4f*x + %.4f\n",
			len(result.history),
			result.history[0], result.history[len(result.history)-1],
			result.weight, result.bias)
	}

	return verifyLinearFit(result)
}

// runLinearFit trains a 1x1 linear model on y = 2x over four points.
func runLinearFit(epochs int, lr float32) (*selfCheckResult, error) {
	backend := autodiff.New(cpu.New())

	inputs, err := tensor.NewRaw(tensor.Shape{4, 1}, tensor.Float32, backend.Device())
	if err != nil {
		return nil, err
	}
	copy(inputs.AsFloat32(), []float32{1, 2, 3, 4})

	targets, err := tensor.NewRaw(tensor.Shape{4, 1}, tensor.Float32, backend.Device())
	if err != nil {
		return nil, err
	}
	copy(targets.AsFloat32(), []float32{2, 4, 6, 8})

	model := nn.NewLinear(1, 1, backend)
	// Deterministic start so the check does not depend on init noise.
	model.Weight().Data()[0] = 0
	model.Bias().Data()[0] = 0

	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: lr})

	trainer, err := train.NewTrainer(backend, optimizer, train.Config{
		Epochs:    epochs,
		BatchSize: 4,
	})
	if err != nil {
		return nil, err
	}

	history, err := trainer.Fit(model, inputs, targets, backend.MSE)
	if err != nil {
		return nil, err
	}

	return &selfCheckResult{
		history: history,
		weight:  model.Weight().Data()[0],
		bias:    model.Bias().Data()[0],
	}, nil
}

// verifyLinearFit checks the training outcome against the expected fit.
func verifyLinearFit(result *selfCheckResult) error {
	if len(result.history) == 0 {
		return fmt.Errorf("empty loss history")
	}

	first := result.history[0]
	last := result.history[len(result.history)-1]
	if last >= first/100 {
		return fmt.Errorf("loss did not converge: %.6f -> %.6f", first, last)
	}

	if math.Abs(float64(result.weight)-2.0) > 0.3 {
		return fmt.Errorf("fitted weight %.4f too far from 2.0", result.weight)
	}

	return nil
}
