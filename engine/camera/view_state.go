package camera

import "errors"

// ViewState tracks whether a camera is currently driving an off-screen capture.
type ViewState int

const (
	ViewStateIdle ViewState = iota
	ViewStateCapturing
)

// ErrAlreadyCapturing is returned by BeginCapture when a capture is already in progress on the same view.
var ErrAlreadyCapturing = errors.New("camera: view is already capturing")

func (s ViewState) String() string {
	if s == ViewStateCapturing {
		return "capturing"
	}
	return "idle"
}
