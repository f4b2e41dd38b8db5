// Package geometry provides the small amount of planar geometry used to build
// image augmentation transforms.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size represents a 2D size in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the centre point of an image of this size.
func (s Size) Center() Point2D {
	return Point2D{X: s.Width / 2, Y: s.Height / 2}
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{A: 1, D: 1}
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Rotation returns a rotation transform around the origin.
func Rotation(radians float64) AffineTransform {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return AffineTransform{A: cos, B: -sin, C: sin, D: cos}
}

// Scale returns a scaling transform.
func Scale(sx, sy float64) AffineTransform {
	return AffineTransform{A: sx, D: sy}
}

// Shear returns a horizontal shear: x' = x + k*y.
func Shear(k float64) AffineTransform {
	return AffineTransform{A: 1, B: k, D: 1}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Dense returns the transform as a 3x3 homogeneous matrix.
func (t AffineTransform) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.A, t.B, t.TX,
		t.C, t.D, t.TY,
		0, 0, 1,
	})
}

// FromDense reads the top two rows of a 3x3 homogeneous matrix.
func FromDense(m mat.Matrix) AffineTransform {
	return AffineTransform{
		A: m.At(0, 0), B: m.At(0, 1), TX: m.At(0, 2),
		C: m.At(1, 0), D: m.At(1, 1), TY: m.At(1, 2),
	}
}

// Chain composes transforms so that the first argument is applied first.
// Chain(a, b).Apply(p) == b.Apply(a.Apply(p)).
func Chain(ts ...AffineTransform) AffineTransform {
	acc := mat.NewDense(3, 3, nil)
	acc.Copy(Identity().Dense())
	for _, t := range ts {
		var next mat.Dense
		next.Mul(t.Dense(), acc)
		acc = &next
	}
	return FromDense(acc)
}

// AboutPoint conjugates t so that it acts around p instead of the origin.
func AboutPoint(t AffineTransform, p Point2D) AffineTransform {
	return Chain(Translation(-p.X, -p.Y), t, Translation(p.X, p.Y))
}

// ToMatrix returns the transform as a [2][3]float64 array.
func (t AffineTransform) ToMatrix() [2][3]float64 {
	return [2][3]float64{
		{t.A, t.B, t.TX},
		{t.C, t.D, t.TY},
	}
}
