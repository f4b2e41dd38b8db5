package analysis

import (
	"fmt"
	"image"
	"log"

	"gocv.io/x/gocv"

	"cropwatch/internal/classify"
	img "cropwatch/internal/image"
)

// InputSize is the side length the classifier was trained on.
const InputSize = 299

// Analyzer turns frames into (label, confidence) results.
type Analyzer struct {
	clf    Classifier
	labels []string
}

// New wraps a loaded classifier. labels must be in the model's output order.
func New(clf Classifier, labels []string) (*Analyzer, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no class labels", classify.ErrModelUnavailable)
	}
	return &Analyzer{clf: clf, labels: append([]string(nil), labels...)}, nil
}

// Open loads the checkpoint at modelPath.
func Open(modelPath string, labels []string) (*Analyzer, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no class labels", classify.ErrModelUnavailable)
	}
	clf, err := OpenDNN(modelPath)
	if err != nil {
		return nil, err
	}
	log.Printf("analysis: loaded %s, classes: %v", modelPath, labels)
	return New(clf, labels)
}

// Analyze classifies one frame.
func (a *Analyzer) Analyze(f img.Frame) (classify.Result, error) {
	blob, err := Preprocess(f, InputSize)
	if err != nil {
		return classify.Result{}, err
	}
	defer blob.Close()

	probs, err := a.clf.Predict(blob)
	if err != nil {
		return classify.Result{}, fmt.Errorf("predict: %w", err)
	}
	if !classify.SumsToOne(probs, 1e-3) {
		log.Printf("analysis: warning: classifier output is not a probability distribution")
	}
	return classify.Top(probs, a.labels)
}

// Close releases the classifier.
func (a *Analyzer) Close() error {
	return a.clf.Close()
}

// Preprocess converts a frame into a (1,3,size,size) float32 batch with
// RGB channel order and values in [0,1].
func Preprocess(f img.Frame, size int) (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("frame to mat: %w", err)
	}
	defer src.Close()

	rgb := gocv.NewMat()
	defer rgb.Close()
	if f.Order == img.OrderRGB {
		src.CopyTo(&rgb)
	} else {
		gocv.CvtColor(src, &rgb, gocv.ColorBGRToRGB)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(rgb, &resized, image.Pt(size, size), 0, 0, gocv.InterpolationLinear)

	scaled := gocv.NewMat()
	defer scaled.Close()
	resized.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	return gocv.BlobFromImage(scaled, 1.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), false, false), nil
}
