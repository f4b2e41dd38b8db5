// Package camera captures frames from a video device through OpenCV.
package camera

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	img "cropwatch/internal/image"
)

var _ img.Source = (*Device)(nil)

// Device is an open capture device.
type Device struct {
	vc   *gocv.VideoCapture
	buf  gocv.Mat
	once sync.Once
	err  error
}

// Open opens a capture device. device is a numeric index ("0"), a device
// path or a stream URL.
func Open(device string) (*Device, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", img.ErrDeviceUnavailable, device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s: could not open camera", img.ErrDeviceUnavailable, device)
	}
	return &Device{vc: vc, buf: gocv.NewMat()}, nil
}

// Capture grabs one frame. A device that returns no frame is treated as
// unavailable.
func (d *Device) Capture() (img.Frame, error) {
	if ok := d.vc.Read(&d.buf); !ok || d.buf.Empty() {
		return img.Frame{}, fmt.Errorf("%w: failed to capture image", img.ErrDeviceUnavailable)
	}
	return toFrame(d.buf, time.Now())
}

// Close releases the device. Further calls are no-ops.
func (d *Device) Close() error {
	d.once.Do(func() {
		d.buf.Close()
		d.err = d.vc.Close()
	})
	return d.err
}

// toFrame copies an 8-bit Mat into a packed BGR frame.
func toFrame(m gocv.Mat, at time.Time) (img.Frame, error) {
	bgr := gocv.NewMat()
	defer bgr.Close()

	switch m.Type() {
	case gocv.MatTypeCV8UC3:
		m.CopyTo(&bgr)
	case gocv.MatTypeCV8UC4:
		gocv.CvtColor(m, &bgr, gocv.ColorBGRAToBGR)
	case gocv.MatTypeCV8UC1:
		gocv.CvtColor(m, &bgr, gocv.ColorGrayToBGR)
	default:
		return img.Frame{}, fmt.Errorf("unsupported frame type %v", m.Type())
	}

	f := img.Frame{
		Pix:        bgr.ToBytes(),
		Width:      bgr.Cols(),
		Height:     bgr.Rows(),
		Order:      img.OrderBGR,
		CapturedAt: at,
	}
	return f, f.Validate()
}
