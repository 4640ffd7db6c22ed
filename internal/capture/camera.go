// Package capture reads webcam frames through gocv.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrReadFailed is returned when the device produced no frame.
	ErrReadFailed = errors.New("camera read failed")
)

// Camera is a frame source. ReadFrame returns a Mat the caller must Close.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config selects the capture device and the mode requested from it.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// DefaultConfig returns device 0 at 640x480, 15 frames per second.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    640,
		Height:   480,
		FPS:      15,
	}
}

type deviceCamera struct {
	config Config

	mu      sync.Mutex
	capture *gocv.VideoCapture
	fps     int
}

// NewCamera returns a Camera for the configured device. The device is not
// touched until Open.
func NewCamera(config Config) Camera {
	defaults := DefaultConfig()
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = defaults.Width, defaults.Height
	}
	if config.FPS <= 0 {
		config.FPS = defaults.FPS
	}
	return &deviceCamera{config: config, fps: config.FPS}
}

// Open starts capturing. Opening an open camera is a no-op.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.config.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.config.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device unavailable", c.config.DeviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = vc
	return nil
}

// Close releases the device. Closing a closed camera returns nil.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrReadFailed
	}
	return &mat, nil
}

// SetFPS ignores non-positive values.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
