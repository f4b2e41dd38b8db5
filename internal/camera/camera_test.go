package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	img "cropwatch/internal/image"
)

func TestToFrameBGR(t *testing.T) {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 3, 4, gocv.MatTypeCV8UC3)
	defer m.Close()

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f, err := toFrame(m, at)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 3, f.Height)
	assert.Equal(t, img.OrderBGR, f.Order)
	assert.Equal(t, at, f.CapturedAt)
	assert.Equal(t, []byte{10, 20, 30}, f.Pix[:3])
}

func TestToFrameGray(t *testing.T) {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(77, 0, 0, 0), 2, 2, gocv.MatTypeCV8UC1)
	defer m.Close()

	f, err := toFrame(m, time.Now())
	require.NoError(t, err)
	assert.Len(t, f.Pix, 12)
	assert.Equal(t, []byte{77, 77, 77}, f.Pix[:3])
}

func TestToFrameRejectsFloat(t *testing.T) {
	m := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV32FC3)
	defer m.Close()

	_, err := toFrame(m, time.Now())
	assert.Error(t, err)
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open("/nonexistent/video99")
	assert.ErrorIs(t, err, img.ErrDeviceUnavailable)
}
