// visage-server: HTTP face analysis service
//
// Serves JSON extraction and websocket frame streaming on top of the
// analysis pipeline.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/openvisage/visage/internal/log"
	"github.com/openvisage/visage/pkg/analysis"
	"github.com/openvisage/visage/pkg/model"
	"github.com/openvisage/visage/pkg/web"
)

var (
	port      = flag.Int("port", 18080, "HTTP server port")
	modelPath = flag.String("detector", "models/face_detection_yunet.onnx", "Path to the YuNet ONNX model")
	remoteURL = flag.String("remote", "http://localhost:18081", "Base URL of the embedding/attribute service")
	threshold = flag.Float64("threshold", 0.6, "Default detection confidence threshold")
	batch     = flag.Int("batch", 8, "Embedding batch size")
	size      = flag.Int("size", 640, "Detector input size")
	device    = flag.String("device", "cpu", "Inference device: cpu or cuda")
	logLevel  = flag.String("log", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	// Override from environment
	if envPort := os.Getenv("PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", port)
	}

	dev, err := analysis.ParseDevice(*device)
	if err != nil {
		log.Error("invalid device", "error", err)
		os.Exit(2)
	}

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
	remoteCfg.BaseURL = *remoteURL
	remoteCfg.Batch = *batch
	remote := model.NewRemote(remoteCfg)

	cfg := analysis.DefaultConfig()
	cfg.TargetSize = image.Pt(*size, *size)
	cfg.MaxBatchSize = *batch
	cfg.Threshold = float32(*threshold)
	cfg.Device = dev

	analyzer, err := analysis.NewAnalyzer(cfg, detector, remote, remote, model.NewNormAligner())
	if err != nil {
		log.Error("analyzer setup failed", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(analyzer, fmt.Sprintf("%d", *port))

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
