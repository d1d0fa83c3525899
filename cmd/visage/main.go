// visage: one-shot face analysis for a single image
//
// Detects faces, optionally extracts embeddings and attributes, and
// prints the records as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/openvisage/visage/internal/log"
	"github.com/openvisage/visage/pkg/analysis"
	"github.com/openvisage/visage/pkg/model"
)

var (
	imagePath = flag.String("image", "", "Path to the input image")
	modelPath = flag.String("detector", "models/face_detection_yunet.onnx", "Path to the YuNet ONNX model")
	remoteURL = flag.String("remote", "", "Base URL of the embedding/attribute service (empty disables extraction)")
	threshold = flag.Float64("threshold", 0.6, "Detection confidence threshold")
	limit     = flag.Int("limit", 0, "Maximum faces per image (0 = unlimited)")
	embed     = flag.Bool("embed", false, "Extract identity embeddings")
	ga        = flag.Bool("ga", false, "Extract gender/age attributes")
	batch     = flag.Int("batch", 1, "Embedding batch size")
	size      = flag.Int("size", 640, "Detector input size")
	logLevel  = flag.String("log", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: visage -image photo.jpg [-embed] [-ga]")
		os.Exit(2)
	}

	img := gocv.IMRead(*imagePath, gocv.IMReadColor)
	if img.Empty() {
		log.Error("could not read image", "path", *imagePath)
		os.Exit(1)
	}
	defer img.Close()

	detector, err := model.NewYuNet(model.YuNetConfig{
		ModelPath:   *modelPath,
		InputWidth:  *size,
		InputHeight: *size,
		NMSThresh:   0.3,
		TopK:        5000,
	})
	if err != nil {
		log.Error("detector setup failed", "error", err)
		os.Exit(1)
	}
	defer detector.Close()

	remoteCfg := model.DefaultRemoteConfig()
	if *remoteURL != "" {
		remoteCfg.BaseURL = *remoteURL
	}
	remoteCfg.Batch = *batch
	remote := model.NewRemote(remoteCfg)

	cfg := analysis.DefaultConfig()
	cfg.TargetSize = image.Pt(*size, *size)
	cfg.MaxBatchSize = *batch
	cfg.Threshold = float32(*threshold)

	analyzer, err := analysis.NewAnalyzer(cfg, detector, remote, remote, model.NewNormAligner())
	if err != nil {
		log.Error("analyzer setup failed", "error", err)
		os.Exit(1)
	}

	faces, err := analyzer.Get(context.Background(), img, analysis.Options{
		LimitFaces:        *limit,
		ExtractEmbedding:  *embed && *remoteURL != "",
		ExtractAttributes: *ga && *remoteURL != "",
	})
	if err != nil {
		log.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(faces, "", "  ")
	if err != nil {
		log.Error("encoding failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
