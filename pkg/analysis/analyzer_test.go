package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"github.com/openvisage/visage/pkg/face"
	"github.com/openvisage/visage/pkg/model"
)

// testImage returns a 1280x720 frame; prepared against a 640x640
// detector input this gives a scale factor of exactly 0.5.
func testImage(t *testing.T) gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSize(720, 1280, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { img.Close() })
	return img
}

func testLandmarks() face.Landmarks {
	return face.Landmarks{
		{X: 120, Y: 130}, {X: 170, Y: 130}, {X: 145, Y: 160},
		{X: 125, Y: 180}, {X: 165, Y: 180},
	}
}

func singleDetection() model.Detections {
	return model.Detections{
		Boxes:     []face.BoundingBox{{X1: 100, Y1: 100, X2: 200, Y2: 200}},
		Scores:    []float32{0.99},
		Landmarks: []face.Landmarks{testLandmarks()},
	}
}

func newTestAnalyzer(t *testing.T, cfg Config, det *model.MockDetector, emb *model.MockEmbedder, attr *model.MockAttributeModel) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(cfg, det, emb, attr, &model.MockAligner{})
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func TestGet_NoDetections(t *testing.T) {
	det := &model.MockDetector{
		DetectFunc: func(img gocv.Mat, threshold float32) (model.Detections, error) {
			return model.Detections{}, nil
		},
	}
	emb := &model.MockEmbedder{}
	attr := &model.MockAttributeModel{}
	a := newTestAnalyzer(t, DefaultConfig(), det, emb, attr)

	faces, err := a.Get(context.Background(), testImage(t), Options{
		ExtractEmbedding:  true,
		ExtractAttributes: true,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if faces == nil {
		t.Fatal("Get: want empty non-nil result for zero detections")
	}
	if len(faces) != 0 {
		t.Fatalf("Get: got %d faces, want 0", len(faces))
	}
	if emb.Calls() != 0 {
		t.Errorf("embedder called %d times for empty detection batch", emb.Calls())
	}
	if attr.Calls() != 0 {
		t.Errorf("attribute model called %d times for empty detection batch", attr.Calls())
	}
}

func TestGet_SingleFaceEmbeddingOnly(t *testing.T) {
	det := &model.MockDetector{
		DetectFunc: func(img gocv.Mat, threshold float32) (model.Detections, error) {
			return singleDetection(), nil
		},
	}
	emb := &model.MockEmbedder{Batch: 1, Dim: 512}
	attr := &model.MockAttributeModel{}
	a := newTestAnalyzer(t, DefaultConfig(), det, emb, attr)

	faces, err := a.Get(context.Background(), testImage(t), Options{
		Threshold:        0.3,
		ExtractEmbedding: true,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("Get: got %d faces, want 1", len(faces))
	}

	f := faces[0]

	// Scale factor 0.5, so the box reprojects to doubled coordinates
	want := face.BoundingBox{X1: 200, Y1: 200, X2: 400, Y2: 400}
	if f.BBox != want {
		t.Errorf("bbox: got %+v, want %+v", f.BBox, want)
	}
	if f.Scale != 0.5 {
		t.Errorf("scale: got %f, want 0.5", f.Scale)
	}
	if f.DetIndex != 0 {
		t.Errorf("det index: got %d, want 0", f.DetIndex)
	}

	if !f.HasEmbedding() {
		t.Fatal("embedding missing")
	}
	if f.EmbeddingNorm == nil || f.NormedEmbedding == nil {
		t.Fatal("normalized embedding missing")
	}
	var sum float64
	for _, x := range f.NormedEmbedding {
		sum += float64(x) * float64(x)
	}
	if norm := math.Sqrt(sum); math.Abs(norm-1) > 1e-4 {
		t.Errorf("normed embedding norm: got %f, want 1", norm)
	}

	if f.Gender != nil || f.Age != nil {
		t.Error("gender/age should be unset without attribute extraction")
	}
	if f.MaskProb != nil {
		t.Error("mask prob should be unset for a detector without mask support")
	}
	if f.Data != nil {
		t.Error("face data should be dropped unless requested")
	}
	if attr.Calls() != 0 {
		t.Errorf("attribute model called %d times without being requested", attr.Calls())
	}
}

func TestGet_LimitFaces(t *testing.T) {
	dets := model.Detections{}
	sizes := []float32{10, 50, 20, 100, 30}
	for i, size := range sizes {
		x := float32(i * 110)
		dets.Boxes = append(dets.Boxes, face.BoundingBox{X1: x, Y1: 0, X2: x + size, Y2: size})
		dets.Scores = append(dets.Scores, 0.9)
		dets.Landmarks = append(dets.Landmarks, testLandmarks())
	}

	det := &model.MockDetector{
		DetectFunc: func(img gocv.Mat, threshold float32) (model.Detections, error) {
			return dets, nil
		},
	}
	a := newTestAnalyzer(t, DefaultConfig(), det, &model.MockEmbedder{}, &model.MockAttributeModel{})

	faces, err := a.Get(context.Background(), testImage(t), Options{LimitFaces: 3})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(faces) != 3 {
		t.Fatalf("Get: got %d faces, want 3", len(faces))
	}

	// The three largest (sizes 50, 100, 30) survive in original order
	wantWidths := []float32{50, 100, 30}
	for i, w := range wantWidths {
		if got := faces[i].BBox.Width(); math.Abs(float64(got-w*2)) > 1e-3 {
			t.Errorf("face %d width: got %f, want %f", i, got, w*2)
		}
	}
}

func TestGet_ChunkedDispatch(t *testing.T) {
	dets := model.Detections{}
	for i := 0; i < 5; i++ {
		x := float32(i * 110)
		dets.Boxes = append(dets.Boxes, face.BoundingBox{X1: x, Y1: 0, X2: x + 50, Y2: 50})
		dets.Scores = append(dets.Scores, 0.9)
		dets.Landmarks = append(dets.Landmarks, testLandmarks())
	}

	det := &model.MockDetector{
		DetectFunc: func(img gocv.Mat, threshold float32) (model.Detections, error) {
			return dets, nil
		},
	}
	emb := &model.MockEmbedder{Batch: 2}

	cfg := DefaultConfig()
	cfg.MaxBatchSize = 2
	a := newTestAnalyzer(t, cfg, det, emb, &model.MockAttributeModel{})

	faces, err := a.Get(context.Background(), testImage(t), Options{ExtractEmbedding: true})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(faces) != 5 {
		t.Fatalf("Get: got %d faces, want 5", len(faces))
	}

	got := emb.BatchSizes()
	want := []int{2, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("batch sizes: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("batch sizes: got %v, want %v", got, want)
		}
	}

	// Records come back in detection order across chunks
	for i, f := range faces {
		if f.DetIndex != i {
			t.Errorf("face %d: det index %d", i, f.DetIndex)
		}
	}
}

func TestNewAnalyzer_ClampsBatchSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBatchSize = 8

	det := &model.MockDetector{}
	emb := &model.MockEmbedder{Batch: 1}
	a := newTestAnalyzer(t, cfg, det, emb, &model.MockAttributeModel{})

	if got := a.Config().MaxBatchSize; got != 1 {
		t.Errorf("batch size: got %d, want clamp to 1", got)
	}
}

func TestNewAnalyzer_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBatchSize = 0

	_, err := NewAnalyzer(cfg, &model.MockDetector{}, &model.MockEmbedder{}, &model.MockAttributeModel{}, &model.MockAligner{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("NewAnalyzer: want ErrInvalidConfig, got %v", err)
	}
}

func TestNewAnalyzer_MissingBackend(t *testing.T) {
	_, err := NewAnalyzer(DefaultConfig(), nil, &model.MockEmbedder{}, &model.MockAttributeModel{}, &model.MockAligner{})
	if !errors.Is(err, ErrMissingBackend) {
		t.Fatalf("NewAnalyzer: want ErrMissingBackend, got %v", err)
	}
}

func TestGet_InvalidImage(t *testing.T) {
	a := newTestAnalyzer(t, DefaultConfig(), &model.MockDetector{}, &model.MockEmbedder{}, &model.MockAttributeModel{})

	empty := gocv.NewMat()
	defer empty.Close()

	_, err := a.Get(context.Background(), empty, Options{})
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("Get: want ErrInvalidImage, got %v", err)
	}
}

func TestGet_CanceledContext(t *testing.T) {
	det := &model.MockDetector{
		DetectFunc: func(img gocv.Mat, threshold float32) (model.Detections, error) {
			return singleDetection(), nil
		},
	}
	emb := &model.MockEmbedder{}
	a := newTestAnalyzer(t, DefaultConfig(), det, emb, &model.MockAttributeModel{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Get(ctx, testImage(t), Options{ExtractEmbedding: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Get: want context.Canceled, got %v", err)
	}
	if det.Calls() != 1 {
		t.Errorf("detector calls: got %d, want 1", det.Calls())
	}
	if emb.Calls() != 0 {
		t.Errorf("embedder called %d times after cancellation", emb.Calls())
	}
}

func TestGet_BackendErrorPropagates(t *testing.T) {
	det := &model.MockDetector{
		DetectFunc: func(img gocv.Mat, threshold float32) (model.Detections, error) {
			return singleDetection(), nil
		},
	}
	emb := &model.MockEmbedder{
		EmbedFunc: func(crops []gocv.Mat) ([][]float32, error) {
			return nil, errors.New("accelerator gone")
		},
	}
	a := newTestAnalyzer(t, DefaultConfig(), det, emb, &model.MockAttributeModel{})

	_, err := a.Get(context.Background(), testImage(t), Options{ExtractEmbedding: true})

	var backendErr *model.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("Get: want BackendError, got %v", err)
	}
	if backendErr.Stage != "embed" {
		t.Errorf("stage: got %q, want embed", backendErr.Stage)
	}
}

func TestGet_MaskProbs(t *testing.T) {
	withMasks := singleDetection()
	withMasks.MaskProbs = []float32{0.84}

	tests := []struct {
		name     string
		caps     model.Capabilities
		wantMask bool
	}{
		{name: "capability declared", caps: model.Capabilities{MaskProbability: true}, wantMask: true},
		{name: "capability absent", caps: model.Capabilities{}, wantMask: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			det := &model.MockDetector{
				Caps: tc.caps,
				DetectFunc: func(img gocv.Mat, threshold float32) (model.Detections, error) {
					return withMasks, nil
				},
			}
			a := newTestAnalyzer(t, DefaultConfig(), det, &model.MockEmbedder{}, &model.MockAttributeModel{})

			faces, err := a.Get(context.Background(), testImage(t), Options{})
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(faces) != 1 {
				t.Fatalf("Get: got %d faces, want 1", len(faces))
			}

			if tc.wantMask {
				if faces[0].MaskProb == nil || *faces[0].MaskProb != 0.84 {
					t.Errorf("mask prob: got %v, want 0.84", faces[0].MaskProb)
				}
			} else if faces[0].MaskProb != nil {
				t.Error("mask prob should be dropped without declared capability")
			}
		})
	}
}

func TestGet_KeepFaceData(t *testing.T) {
	det := &model.MockDetector{
		DetectFunc: func(img gocv.Mat, threshold float32) (model.Detections, error) {
			return singleDetection(), nil
		},
	}
	a := newTestAnalyzer(t, DefaultConfig(), det, &model.MockEmbedder{}, &model.MockAttributeModel{})

	faces, err := a.Get(context.Background(), testImage(t), Options{KeepFaceData: true})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if faces[0].Data == nil {
		t.Fatal("face data missing despite KeepFaceData")
	}
	faces.Close()
}

func TestGet_AttributesOnly(t *testing.T) {
	det := &model.MockDetector{
		DetectFunc: func(img gocv.Mat, threshold float32) (model.Detections, error) {
			return singleDetection(), nil
		},
	}
	attr := &model.MockAttributeModel{
		InferFunc: func(crops []gocv.Mat) ([]model.Attributes, error) {
			out := make([]model.Attributes, len(crops))
			for i := range out {
				out[i] = model.Attributes{Gender: 1, Age: 34.5}
			}
			return out, nil
		},
	}
	emb := &model.MockEmbedder{}
	a := newTestAnalyzer(t, DefaultConfig(), det, emb, attr)

	faces, err := a.Get(context.Background(), testImage(t), Options{ExtractAttributes: true})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	f := faces[0]
	if f.Gender == nil || *f.Gender != 1 {
		t.Errorf("gender: got %v, want 1", f.Gender)
	}
	if f.Age == nil || *f.Age != 34.5 {
		t.Errorf("age: got %v, want 34.5", f.Age)
	}
	if f.HasEmbedding() || f.EmbeddingNorm != nil {
		t.Error("embedding should stay unset without being requested")
	}
	if emb.Calls() != 0 {
		t.Errorf("embedder called %d times without being requested", emb.Calls())
	}
}
