package model

import (
	"sync"

	"github.com/openvisage/visage/pkg/face"
	"gocv.io/x/gocv"
)

// MockDetector implements Detector for testing.
type MockDetector struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(img gocv.Mat, threshold float32) (Detections, error)

	// Caps are the capabilities to report.
	Caps Capabilities

	mu    sync.Mutex
	calls int
}

// Detect calls DetectFunc and records the call.
func (m *MockDetector) Detect(img gocv.Mat, threshold float32) (Detections, error) {
	m.record()
	if m.DetectFunc != nil {
		return m.DetectFunc(img, threshold)
	}
	return Detections{}, nil
}

// Capabilities returns the configured capabilities.
func (m *MockDetector) Capabilities() Capabilities {
	return m.Caps
}

// Close is a no-op.
func (m *MockDetector) Close() error { return nil }

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) record() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

// MockEmbedder implements Embedder for testing.
type MockEmbedder struct {
	// EmbedFunc is called when Embed is invoked.
	EmbedFunc func(crops []gocv.Mat) ([][]float32, error)

	// Batch is the reported maximum batch size (default 1).
	Batch int

	// Dim is the embedding length produced by the default EmbedFunc.
	Dim int

	mu      sync.Mutex
	calls   int
	batches []int
}

// Embed calls EmbedFunc, or produces constant vectors of length Dim.
func (m *MockEmbedder) Embed(crops []gocv.Mat) ([][]float32, error) {
	m.record(len(crops))
	if m.EmbedFunc != nil {
		return m.EmbedFunc(crops)
	}
	dim := m.Dim
	if dim == 0 {
		dim = 512
	}
	out := make([][]float32, len(crops))
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = 1
		}
		out[i] = v
	}
	return out, nil
}

// MaxBatchSize returns the configured batch limit.
func (m *MockEmbedder) MaxBatchSize() int {
	if m.Batch <= 0 {
		return 1
	}
	return m.Batch
}

// Close is a no-op.
func (m *MockEmbedder) Close() error { return nil }

// Calls returns how many times Embed was invoked.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// BatchSizes returns the crop counts of each Embed call, in order.
func (m *MockEmbedder) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.batches))
	copy(out, m.batches)
	return out
}

func (m *MockEmbedder) record(n int) {
	m.mu.Lock()
	m.calls++
	m.batches = append(m.batches, n)
	m.mu.Unlock()
}

// MockAttributeModel implements AttributeModel for testing.
type MockAttributeModel struct {
	// InferFunc is called when Infer is invoked.
	InferFunc func(crops []gocv.Mat) ([]Attributes, error)

	mu    sync.Mutex
	calls int
}

// Infer calls InferFunc, or returns zero attributes per crop.
func (m *MockAttributeModel) Infer(crops []gocv.Mat) ([]Attributes, error) {
	m.record()
	if m.InferFunc != nil {
		return m.InferFunc(crops)
	}
	return make([]Attributes, len(crops)), nil
}

// Close is a no-op.
func (m *MockAttributeModel) Close() error { return nil }

// Calls returns how many times Infer was invoked.
func (m *MockAttributeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockAttributeModel) record() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

// MockAligner implements Aligner for testing. It returns small empty
// crops instead of warping real pixels.
type MockAligner struct {
	// AlignFunc is called when AlignCrop is invoked.
	AlignFunc func(orig gocv.Mat, lm face.Landmarks) (gocv.Mat, error)
}

// AlignCrop calls AlignFunc, or returns a blank crop.
func (m *MockAligner) AlignCrop(orig gocv.Mat, lm face.Landmarks) (gocv.Mat, error) {
	if m.AlignFunc != nil {
		return m.AlignFunc(orig, lm)
	}
	return gocv.NewMatWithSize(AlignedSize, AlignedSize, gocv.MatTypeCV8UC3), nil
}

// Compile-time interface checks.
var (
	_ Detector       = (*MockDetector)(nil)
	_ Embedder       = (*MockEmbedder)(nil)
	_ AttributeModel = (*MockAttributeModel)(nil)
	_ Aligner        = (*MockAligner)(nil)
)
