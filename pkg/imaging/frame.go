// Package imaging prepares input images for detection: aspect-preserving
// resize to the detector's input shape, optional letterbox padding, and
// the scale bookkeeping needed to map detections back to the original
// image.
package imaging

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrInvalidImage is returned for images that are empty, have zero
// area, or could not be decoded.
var ErrInvalidImage = errors.New("imaging: invalid or empty image")

// ResizeMode controls how the resized image is fitted into the target
// shape.
type ResizeMode int

const (
	// ModePad letterboxes the resized image to the exact target shape,
	// filling the remainder with black.
	ModePad ResizeMode = iota

	// ModeFit resizes to fit within the target shape without padding.
	ModeFit
)

// Frame holds an original image together with its resized/padded
// counterpart and the transform parameters linking the two coordinate
// spaces. Dividing transformed-space coordinates by Scale recovers
// original-space coordinates; padding sits at the right/bottom edges
// and needs no offset correction.
type Frame struct {
	// Orig is the caller's original image. The frame does not own it.
	Orig gocv.Mat

	// Transformed is the resized (and possibly padded) image owned by
	// the frame. Released by Close.
	Transformed gocv.Mat

	// Scale is transformed-dimension / original-dimension. Always > 0.
	Scale float32

	// PadRight and PadBottom are the letterbox margins in pixels.
	PadRight, PadBottom int
}

// Shape returns the transformed image dimensions as (width, height).
func (f *Frame) Shape() image.Point {
	return image.Pt(f.Transformed.Cols(), f.Transformed.Rows())
}

// Close releases the transformed buffer. The original image stays with
// its owner.
func (f *Frame) Close() {
	if !f.Transformed.Closed() {
		f.Transformed.Close()
	}
}

// Prepare resizes img so its larger relative dimension fits target,
// preserving aspect ratio, and records the scale factor. With ModePad
// the result is letterboxed to exactly target. Fails with
// ErrInvalidImage when the input has zero area.
func Prepare(img gocv.Mat, target image.Point, mode ResizeMode) (*Frame, error) {
	if img.Empty() || img.Cols() <= 0 || img.Rows() <= 0 {
		return nil, ErrInvalidImage
	}
	if target.X <= 0 || target.Y <= 0 {
		return nil, fmt.Errorf("imaging: invalid target shape %dx%d", target.X, target.Y)
	}

	w := img.Cols()
	h := img.Rows()

	scale := float32(target.X) / float32(w)
	if s := float32(target.Y) / float32(h); s < scale {
		scale = s
	}

	newW := int(float32(w) * scale)
	newH := int(float32(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationLinear)

	frame := &Frame{
		Orig:  img,
		Scale: scale,
	}

	if mode == ModePad && (newW != target.X || newH != target.Y) {
		padded := gocv.NewMatWithSize(target.Y, target.X, img.Type())
		padded.SetTo(gocv.NewScalar(0, 0, 0, 0))

		roi := padded.Region(image.Rect(0, 0, newW, newH))
		resized.CopyTo(&roi)
		roi.Close()
		resized.Close()

		frame.Transformed = padded
		frame.PadRight = target.X - newW
		frame.PadBottom = target.Y - newH
	} else {
		frame.Transformed = resized
	}

	return frame, nil
}
