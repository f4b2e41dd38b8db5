// Package augment generates randomized variants of training images.
package augment

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"

	"gocv.io/x/gocv"

	"cropwatch/pkg/geometry"
)

// Range is a closed interval sampled uniformly.
type Range struct {
	Min, Max float64
}

func (r Range) sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Params bounds the random transform.
type Params struct {
	RotationDeg Range   // degrees
	Shift       Range   // fraction of width (x) and height (y), drawn independently
	Shear       Range   // shear factor, x' = x + k*y
	Zoom        Range   // drawn independently per axis
	FlipProb    float64 // probability of a horizontal flip
	Brightness  Range   // multiplier on pixel values
}

// DefaultParams returns the ranges used for wheat field images.
func DefaultParams() Params {
	return Params{
		RotationDeg: Range{-40, 40},
		Shift:       Range{-0.2, 0.2},
		Shear:       Range{-0.2, 0.2},
		Zoom:        Range{0.8, 1.2},
		FlipProb:    0.5,
		Brightness:  Range{0.8, 1.2},
	}
}

// Transform is one concrete draw from Params.
type Transform struct {
	RotationDeg    float64
	ShiftX, ShiftY float64
	Shear          float64
	ZoomX, ZoomY   float64
	Flip           bool
	Brightness     float64
}

// Sample draws a transform. The draw order is fixed so seeded runs repeat.
func (p Params) Sample(rng *rand.Rand) Transform {
	return Transform{
		RotationDeg: p.RotationDeg.sample(rng),
		ShiftX:      p.Shift.sample(rng),
		ShiftY:      p.Shift.sample(rng),
		Shear:       p.Shear.sample(rng),
		ZoomX:       p.Zoom.sample(rng),
		ZoomY:       p.Zoom.sample(rng),
		Flip:        rng.Float64() < p.FlipProb,
		Brightness:  p.Brightness.sample(rng),
	}
}

// Affine returns the geometric part of t for an image of the given size:
// zoom, shear and rotation about the centre, then the shift.
func (t Transform) Affine(size geometry.Size) geometry.AffineTransform {
	core := geometry.Chain(
		geometry.Scale(t.ZoomX, t.ZoomY),
		geometry.Shear(t.Shear),
		geometry.Rotation(t.RotationDeg*math.Pi/180),
	)
	return geometry.Chain(
		geometry.AboutPoint(core, size.Center()),
		geometry.Translation(t.ShiftX*size.Width, t.ShiftY*size.Height),
	)
}

// Apply renders t onto src. The output has the same size as src; pixels
// pulled in from outside are filled with the nearest edge pixel.
func Apply(src gocv.Mat, t Transform) gocv.Mat {
	size := geometry.Size{Width: float64(src.Cols()), Height: float64(src.Rows())}
	m := t.Affine(size).ToMatrix()

	transformMat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer transformMat.Close()
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			transformMat.SetDoubleAt(r, c, m[r][c])
		}
	}

	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpAffineWithParams(src, &warped, transformMat, image.Pt(src.Cols(), src.Rows()),
		gocv.InterpolationLinear, gocv.BorderReplicate, color.RGBA{})

	flipped := gocv.NewMat()
	defer flipped.Close()
	if t.Flip {
		gocv.Flip(warped, &flipped, 1)
	} else {
		warped.CopyTo(&flipped)
	}

	dst := gocv.NewMat()
	flipped.ConvertToWithParams(&dst, flipped.Type(), float32(t.Brightness), 0)
	return dst
}

// Augmenter writes transformed copies of image files.
type Augmenter struct {
	Params Params
}

// New returns an augmenter with the default ranges.
func New() *Augmenter {
	return &Augmenter{Params: DefaultParams()}
}

// Augment reads src, applies one random transform and writes dst. The
// output format follows dst's extension.
func (a *Augmenter) Augment(src, dst string, rng *rand.Rand) error {
	in := gocv.IMRead(src, gocv.IMReadColor)
	defer in.Close()
	if in.Empty() {
		return fmt.Errorf("failed to read image %s", src)
	}

	out := Apply(in, a.Params.Sample(rng))
	defer out.Close()

	if ok := gocv.IMWrite(dst, out); !ok {
		return fmt.Errorf("failed to write image %s", dst)
	}
	return nil
}
