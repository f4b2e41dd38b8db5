// Package analysis runs the wheat classifier on camera frames.
package analysis

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"cropwatch/internal/classify"
)

// Classifier maps a prepared (1,3,H,W) batch to a probability vector.
type Classifier interface {
	Predict(batch gocv.Mat) ([]float32, error)
	Close() error
}

// DNNClassifier is a network loaded through the OpenCV dnn module.
type DNNClassifier struct {
	net gocv.Net
}

// OpenDNN loads a checkpoint (ONNX, TensorFlow, Caffe or Darknet).
func OpenDNN(path string) (*DNNClassifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", classify.ErrModelUnavailable, err)
	}
	net := gocv.ReadNet(path, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("%w: could not load %s", classify.ErrModelUnavailable, path)
	}
	return &DNNClassifier{net: net}, nil
}

// Predict runs a forward pass. The returned slice is owned by the caller.
func (c *DNNClassifier) Predict(batch gocv.Mat) ([]float32, error) {
	c.net.SetInput(batch, "")
	out := c.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return nil, fmt.Errorf("forward pass produced no output")
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading network output: %w", err)
	}
	probs := make([]float32, len(data))
	copy(probs, data)
	return probs, nil
}

// Close releases the network.
func (c *DNNClassifier) Close() error {
	return c.net.Close()
}
