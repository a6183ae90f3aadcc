// Package vision is the detector facade: it wraps gocv (Go bindings for
// OpenCV) behind the handful of operations the request state machine needs,
// and owns the two serialising locks the spec demands — one for the cascade
// classifiers, one for the on-disk scratch file used as the exchange medium
// with the CV library's simplest decode/encode entry points.
package vision

import (
	"errors"
	"image"
	"image/color"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

const (
	haarScaleFactor  = 1.1
	haarMinNeighbors = 4
	haarMinSize      = 0
	haarMaxSize      = 1000

	lineThickness = 4
)

var (
	ErrInvalidImage      = errors.New("vision: invalid image")
	ErrClassifierLoad    = errors.New("vision: unable to load a cascade classifier")
	ErrScratchUnwritable = errors.New("vision: scratch file is not writable")
)

var (
	magenta = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	blue    = color.RGBA{R: 0, G: 0, B: 255, A: 0}
)

// Detector is a process-wide singleton: both cascades and the scratch-file
// path are loaded once at boot and live for the lifetime of the server.
// cascadeMu serialises every call into either classifier; fileMu serialises
// every write-then-load or save-then-read pair against the scratch path.
// Callers must never hold cascadeMu and fileMu at once on the encode path,
// and must always acquire fileMu before cascadeMu if both are ever needed,
// to preclude deadlock — see spec.md §5.
type Detector struct {
	scratchPath string

	fileMu sync.Mutex

	cascadeMu   sync.Mutex
	faceCascade gocv.CascadeClassifier
	eyeCascade  gocv.CascadeClassifier
}

// NewDetector loads both Haar cascades from the given paths. A load failure
// is fatal to the caller — spec.md's bootstrap maps it to exit code 14.
func NewDetector(faceCascadePath, eyeCascadePath, scratchPath string) (*Detector, error) {
	face := gocv.NewCascadeClassifier()
	if !face.Load(faceCascadePath) {
		face.Close()
		return nil, ErrClassifierLoad
	}
	eye := gocv.NewCascadeClassifier()
	if !eye.Load(eyeCascadePath) {
		face.Close()
		eye.Close()
		return nil, ErrClassifierLoad
	}
	return &Detector{
		scratchPath: scratchPath,
		faceCascade: face,
		eyeCascade:  eye,
	}, nil
}

// Close releases both cascades. The server process outlives every worker,
// so this is only ever called once, at shutdown.
func (d *Detector) Close() {
	d.faceCascade.Close()
	d.eyeCascade.Close()
}

// PreflightScratchFile verifies path can be opened for writing. It takes a
// bare path rather than a *Detector so bootstrap can run it before loading
// any cascade, matching the original implementation's check-image-file-
// before-check-cascade-classifier ordering.
func PreflightScratchFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return ErrScratchUnwritable
	}
	return f.Close()
}

// DecodeColor writes data to the scratch file under fileMu and asks gocv to
// load it back as a 3-channel color frame. The lock is held across the
// write and the load so no other worker can observe partial contents.
func (d *Detector) DecodeColor(data []byte) (gocv.Mat, error) {
	return d.decode(data, gocv.IMReadColor)
}

// DecodeUnchanged is DecodeColor but preserves an alpha channel, for the
// replacement image on a replace request.
func (d *Detector) DecodeUnchanged(data []byte) (gocv.Mat, error) {
	return d.decode(data, gocv.IMReadUnchanged)
}

func (d *Detector) decode(data []byte, flags gocv.IMReadFlag) (gocv.Mat, error) {
	d.fileMu.Lock()
	defer d.fileMu.Unlock()
	if err := os.WriteFile(d.scratchPath, data, 0o666); err != nil {
		return gocv.Mat{}, ErrInvalidImage
	}
	frame := gocv.IMRead(d.scratchPath, flags)
	if frame.Empty() {
		return gocv.Mat{}, ErrInvalidImage
	}
	return frame, nil
}

// Greyscale converts frame to a histogram-equalised single-channel image.
func Greyscale(frame gocv.Mat) gocv.Mat {
	grey := gocv.NewMat()
	gocv.CvtColor(frame, &grey, gocv.ColorBGRToGray)
	gocv.EqualizeHist(grey, &grey)
	return grey
}

// FindFaces runs the face classifier against the greyscale frame, holding
// cascadeMu for the duration of the detection call and releasing it before
// any further I/O. It returns an empty slice, never an error, when no faces
// are found — that is a normal, expected outcome, not a failure.
func (d *Detector) FindFaces(grey gocv.Mat) []image.Rectangle {
	d.cascadeMu.Lock()
	defer d.cascadeMu.Unlock()
	return d.faceCascade.DetectMultiScaleWithParams(
		grey, haarScaleFactor, haarMinNeighbors, 0,
		image.Pt(haarMinSize, haarMinSize), image.Pt(haarMaxSize, haarMaxSize),
	)
}

// Annotate draws a magenta ellipse around each face and, when exactly two
// eyes are found inside that face's ROI, a blue circle at each eye center.
func (d *Detector) Annotate(frame gocv.Mat, grey gocv.Mat, faces []image.Rectangle) {
	for _, face := range faces {
		center := image.Pt(face.Min.X+face.Dx()/2, face.Min.Y+face.Dy()/2)
		axes := image.Pt(face.Dx()/2, face.Dy()/2)
		gocv.Ellipse(&frame, center, axes, 0, 0, 360, magenta, lineThickness)

		roi := grey.Region(face)
		eyes := d.findEyes(roi)
		roi.Close()
		if len(eyes) != 2 {
			continue
		}
		for _, eye := range eyes {
			eyeCenter := image.Pt(face.Min.X+eye.Min.X+eye.Dx()/2, face.Min.Y+eye.Min.Y+eye.Dy()/2)
			radius := (eye.Dx()/2 + eye.Dy()/2) / 2
			gocv.Circle(&frame, eyeCenter, radius, blue, lineThickness)
		}
	}
}

func (d *Detector) findEyes(faceROI gocv.Mat) []image.Rectangle {
	d.cascadeMu.Lock()
	defer d.cascadeMu.Unlock()
	return d.eyeCascade.DetectMultiScaleWithParams(
		faceROI, haarScaleFactor, haarMinNeighbors, 0,
		image.Pt(haarMinSize, haarMinSize), image.Pt(haarMaxSize, haarMaxSize),
	)
}

// Composite resizes replacement to each face rectangle (area interpolation)
// and copies its BGR channels into frame at the face origin. Pixels whose
// alpha channel is zero are skipped when replacement carries an alpha
// channel; otherwise every pixel is copied. Only the first three channels
// are ever written into frame.
func Composite(frame gocv.Mat, faces []image.Rectangle, replacement gocv.Mat) error {
	for _, face := range faces {
		resized := gocv.NewMatWithSize(face.Dy(), face.Dx(), replacement.Type())
		gocv.Resize(replacement, &resized, image.Pt(face.Dx(), face.Dy()), 0, 0, gocv.InterpolationArea)

		frameData, err := frame.DataPtrUint8()
		if err != nil {
			resized.Close()
			return err
		}
		faceData, err := resized.DataPtrUint8()
		if err != nil {
			resized.Close()
			return err
		}
		frameChannels := frame.Channels()
		resizedChannels := resized.Channels()
		frameStep := frame.Step()
		resizedStep := resized.Step()

		for y := 0; y < face.Dy(); y++ {
			for x := 0; x < face.Dx(); x++ {
				faceIdx := resizedStep*y + x*resizedChannels
				if resizedChannels == 4 && faceData[faceIdx+3] == 0 {
					continue
				}
				frameIdx := frameStep*(face.Min.Y+y) + (face.Min.X+x)*frameChannels
				frameData[frameIdx+0] = faceData[faceIdx+0]
				frameData[frameIdx+1] = faceData[faceIdx+1]
				frameData[frameIdx+2] = faceData[faceIdx+2]
			}
		}
		resized.Close()
	}
	return nil
}

// EncodeJPEG saves frame to the scratch file under fileMu, then reads the
// file back; that byte sequence becomes the response payload. cascadeMu is
// never held here — the encode path only ever touches fileMu.
func (d *Detector) EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	d.fileMu.Lock()
	defer d.fileMu.Unlock()
	if ok := gocv.IMWrite(d.scratchPath, frame); !ok {
		return nil, ErrInvalidImage
	}
	return os.ReadFile(d.scratchPath)
}
