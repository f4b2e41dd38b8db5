package analysis

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"cropwatch/internal/classify"
	img "cropwatch/internal/image"
)

type fakeClassifier struct {
	probs  []float32
	err    error
	shape  []int
	closed bool
}

func (f *fakeClassifier) Predict(batch gocv.Mat) ([]float32, error) {
	f.shape = batch.Size()
	return f.probs, f.err
}

func (f *fakeClassifier) Close() error {
	f.closed = true
	return nil
}

var labels = []string{"Aphid", "Black Rust", "Healthy"}

func solidFrame(w, h int, b, g, r byte) img.Frame {
	pix := make([]byte, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = b, g, r
	}
	return img.Frame{Pix: pix, Width: w, Height: h, Order: img.OrderBGR}
}

func TestPreprocessShapeAndRange(t *testing.T) {
	blob, err := Preprocess(solidFrame(640, 480, 0, 0, 255), InputSize)
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, []int{1, 3, InputSize, InputSize}, blob.Size())

	data, err := blob.DataPtrFloat32()
	require.NoError(t, err)
	plane := InputSize * InputSize
	// BGR red becomes RGB channel 0 at full scale.
	assert.InDelta(t, 1.0, data[0], 1e-6)
	assert.InDelta(t, 0.0, data[plane], 1e-6)
	assert.InDelta(t, 0.0, data[2*plane], 1e-6)
}

func TestPreprocessRGBFrameUnchanged(t *testing.T) {
	f := solidFrame(8, 8, 255, 0, 0)
	f.Order = img.OrderRGB
	blob, err := Preprocess(f, 4)
	require.NoError(t, err)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, data[0], 1e-6)
}

func TestPreprocessRejectsInvalidFrame(t *testing.T) {
	_, err := Preprocess(img.Frame{Pix: []byte{1, 2}, Width: 4, Height: 4}, InputSize)
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	clf := &fakeClassifier{probs: []float32{0.85, 0.05, 0.10}}
	a, err := New(clf, labels)
	require.NoError(t, err)

	res, err := a.Analyze(solidFrame(32, 24, 10, 200, 10))
	require.NoError(t, err)
	assert.Equal(t, "Aphid", res.Label)
	assert.InDelta(t, 0.85, res.Confidence, 1e-6)
	assert.Equal(t, []int{1, 3, InputSize, InputSize}, clf.shape)

	require.NoError(t, a.Close())
	assert.True(t, clf.closed)
}

func TestAnalyzeErrors(t *testing.T) {
	a, err := New(&fakeClassifier{probs: []float32{0.5, 0.5}}, labels)
	require.NoError(t, err)
	_, err = a.Analyze(solidFrame(8, 8, 0, 0, 0))
	assert.Error(t, err, "length mismatch")

	boom := errors.New("boom")
	a, err = New(&fakeClassifier{err: boom}, labels)
	require.NoError(t, err)
	_, err = a.Analyze(solidFrame(8, 8, 0, 0, 0))
	assert.ErrorIs(t, err, boom)
}

func TestNewRequiresLabels(t *testing.T) {
	_, err := New(&fakeClassifier{}, nil)
	assert.ErrorIs(t, err, classify.ErrModelUnavailable)
}

func TestOpenMissingModel(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.onnx"), labels)
	assert.ErrorIs(t, err, classify.ErrModelUnavailable)
}
