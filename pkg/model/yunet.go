package model

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/openvisage/visage/pkg/face"
	"gocv.io/x/gocv"
)

// YuNetConfig holds YuNet detector configuration.
type YuNetConfig struct {
	ModelPath   string // Path to ONNX model
	InputWidth  int    // Model input width
	InputHeight int    // Model input height
	NMSThresh   float32
	TopK        int
}

// DefaultYuNetConfig returns production defaults for YuNet.
func DefaultYuNetConfig() YuNetConfig {
	return YuNetConfig{
		ModelPath:   "models/face_detection_yunet.onnx",
		InputWidth:  320,
		InputHeight: 320,
		NMSThresh:   0.3,
		TopK:        5000,
	}
}

// YuNet is a face detector backend using OpenCV's FaceDetectorYN.
// It emits corner boxes, five-point landmarks and scores. YuNet has no
// mask classification head, so Capabilities reports none.
type YuNet struct {
	detector gocv.FaceDetectorYN
	config   YuNetConfig
	mu       sync.Mutex // protects inference
}

// NewYuNet creates a YuNet detector from an ONNX model file.
func NewYuNet(cfg YuNetConfig) (*YuNet, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"", // No config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		0, // Score threshold applied per call
		cfg.NMSThresh,
		cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNet{
		detector: detector,
		config:   cfg,
	}, nil
}

// Capabilities reports the detector's optional features.
func (d *YuNet) Capabilities() Capabilities {
	return Capabilities{MaskProbability: false}
}

// Detect finds faces in the image, keeping detections at or above
// threshold.
func (d *YuNet) Detect(img gocv.Mat, threshold float32) (Detections, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return Detections{}, WrapError("detect", fmt.Errorf("empty image"))
	}

	// Update detector input size to match image
	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	// YuNet output format (15 columns):
	// 0-3: x, y, w, h (bounding box in pixels)
	// 4-13: 5 facial landmarks (x,y pairs)
	// 14: face score
	var out Detections
	for r := 0; r < faces.Rows(); r++ {
		score := faces.GetFloatAt(r, 14)
		if score < threshold {
			continue
		}

		x := faces.GetFloatAt(r, 0)
		y := faces.GetFloatAt(r, 1)
		w := faces.GetFloatAt(r, 2)
		h := faces.GetFloatAt(r, 3)

		lm := make(face.Landmarks, face.NumAlignmentLandmarks)
		for j := 0; j < face.NumAlignmentLandmarks; j++ {
			lm[j] = face.Point{
				X: faces.GetFloatAt(r, 4+j*2),
				Y: faces.GetFloatAt(r, 5+j*2),
			}
		}

		out.Boxes = append(out.Boxes, face.BoundingBox{X1: x, Y1: y, X2: x + w, Y2: y + h})
		out.Scores = append(out.Scores, score)
		out.Landmarks = append(out.Landmarks, lm)
	}

	return out, nil
}

// Close releases the detector resources.
func (d *YuNet) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

var _ Detector = (*YuNet)(nil)
