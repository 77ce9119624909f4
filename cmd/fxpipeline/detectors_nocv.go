//go:build !with_cv
// +build !with_cv

package main

import (
	"context"

	"github.com/xaionaro-go/fxpipeline/config"
	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/logger"
)

func newDetectorResources(
	ctx context.Context,
	cfg config.DetectorSettings,
) (*detector.Resources, error) {
	if cfg.HaarCascadePath != "" || cfg.DNNModelPath != "" {
		logger.Warnf(ctx, "the binary is built without the 'with_cv' tag, the detectors are disabled")
	}
	return detector.NewResources(detector.ResourcesConfig{Timeout: cfg.Timeout}), nil
}
