package image

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrDeviceUnavailable is returned when a frame source cannot be opened or
// fails to deliver a frame. It is terminal for the capture loop.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// Source yields frames on demand. Implementations own an exclusive device and
// must tolerate Close being called once after any Capture failure.
type Source interface {
	Capture() (Frame, error)
	Close() error
}

// DirSource replays the still images of a directory in name order, as if
// they had been captured one after another. Running out of images behaves
// like a camera that returns no frame.
type DirSource struct {
	dir    string
	files  []string
	next   int
	closed bool
}

// NewDirSource lists the supported images in dir.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedFormat(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrDeviceUnavailable, dir)
	}
	sort.Strings(files)

	return &DirSource{dir: dir, files: files}, nil
}

// Len returns the number of images the source will replay.
func (s *DirSource) Len() int {
	return len(s.files)
}

// Capture loads the next image.
func (s *DirSource) Capture() (Frame, error) {
	if s.closed {
		return Frame{}, fmt.Errorf("%w: source closed", ErrDeviceUnavailable)
	}
	if s.next >= len(s.files) {
		return Frame{}, fmt.Errorf("%w: replay of %s exhausted after %d frames", ErrDeviceUnavailable, s.dir, len(s.files))
	}
	path := s.files[s.next]
	s.next++

	f, err := Load(path)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return f, nil
}

// Close releases the source.
func (s *DirSource) Close() error {
	s.closed = true
	return nil
}
