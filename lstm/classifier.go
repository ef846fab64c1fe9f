// Package lstm runs the activity sequence classifier on the NPU.
package lstm

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-posewatch"
)

// Classifier predicts the activity distribution of a window of feature
// vectors with an RKNN compiled recurrent model taking a [1, W, F] float32
// input and producing one probability per activity class
type Classifier struct {
	rt       *posewatch.Runtime
	window   int
	features int
	classes  int
	// mu serialises inference on the runtime
	mu sync.Mutex
}

// Open loads the model file and checks it matches the configured window,
// feature length and number of classes
func Open(modelFile string, core posewatch.CoreMask, window, features, classes int) (*Classifier, error) {

	rt, err := posewatch.NewRuntime(modelFile, core)

	if err != nil {
		return nil, fmt.Errorf("error loading activity model: %w", err)
	}

	c, err := New(rt, window, features, classes)

	if err != nil {
		rt.Close()
		return nil, err
	}

	return c, nil
}

// New wraps an already loaded runtime
func New(rt *posewatch.Runtime, window, features, classes int) (*Classifier, error) {

	if len(rt.InputAttrs()) != 1 || len(rt.OutputAttrs()) < 1 {
		return nil, fmt.Errorf("activity model must have one input and at least one output, has %d and %d",
			len(rt.InputAttrs()), len(rt.OutputAttrs()))
	}

	err := checkInputShape(rt.InputAttrs()[0], window, features)

	if err != nil {
		return nil, err
	}

	err = checkOutputClasses(rt.OutputAttrs()[0], classes)

	if err != nil {
		return nil, err
	}

	// outputs are returned dequantized
	rt.SetWantFloat(true)

	return &Classifier{
		rt:       rt,
		window:   window,
		features: features,
		classes:  classes,
	}, nil
}

// Predict runs the model over one window.  The batch must have W rows of F
// features.
func (c *Classifier) Predict(ctx context.Context, batch *mat.Dense) ([]float32, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := flatten(batch, c.window, c.features)

	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	outputs, err := c.rt.InferenceFloat32([][]float32{data})

	if err != nil {
		return nil, fmt.Errorf("error running activity inference: %w", err)
	}

	defer outputs.Free()

	out := outputs.Output[0].BufFloat

	if len(out) < c.classes {
		return nil, fmt.Errorf("activity model returned %d values, expected %d", len(out), c.classes)
	}

	// copy out of C memory before it is freed
	return append([]float32(nil), out[:c.classes]...), nil
}

// Close unloads the model
func (c *Classifier) Close() error {
	return c.rt.Close()
}

// checkInputShape verifies the model input is [1, W, F], leading dimensions
// of one are ignored
func checkInputShape(attr posewatch.TensorAttr, window, features int) error {

	dims := attr.Squeeze(2)

	if len(dims) == 2 && int(dims[0]) == window && int(dims[1]) == features {
		return nil
	}

	return fmt.Errorf("activity model input shape %v does not match configured window %d and features %d",
		attr.Shape(), window, features)
}

// checkOutputClasses verifies the model output holds one value per label
func checkOutputClasses(attr posewatch.TensorAttr, classes int) error {

	if attr.Elements() != classes {
		return fmt.Errorf("activity model output shape %v does not match %d labels", attr.Shape(), classes)
	}

	return nil
}

// flatten returns the batch as row major float32 data
func flatten(batch *mat.Dense, window, features int) ([]float32, error) {

	if batch == nil {
		return nil, fmt.Errorf("empty window")
	}

	rows, cols := batch.Dims()

	if rows != window || cols != features {
		return nil, fmt.Errorf("window is %dx%d, model expects %dx%d", rows, cols, window, features)
	}

	data := make([]float32, 0, rows*cols)

	for r := 0; r < rows; r++ {
		for _, v := range batch.RawRowView(r) {
			data = append(data, float32(v))
		}
	}

	return data, nil
}
