//go:build with_cv
// +build with_cv

package main

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/fxpipeline/config"
	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/detector/dnnobjects"
	"github.com/xaionaro-go/fxpipeline/detector/haarcascade"
	"github.com/xaionaro-go/fxpipeline/logger"
)

func newDetectorResources(
	ctx context.Context,
	cfg config.DetectorSettings,
) (*detector.Resources, error) {
	resCfg := detector.ResourcesConfig{
		Timeout: cfg.Timeout,
	}

	if cfg.HaarCascadePath != "" {
		faces, err := haarcascade.NewFromFile(cfg.HaarCascadePath, haarcascade.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to initialize the face detector: %w", err)
		}
		resCfg.Faces = faces
		logger.Infof(ctx, "face detector: %s", faces)
	}

	if cfg.DNNModelPath != "" {
		objCfg := dnnobjects.DefaultConfig()
		objCfg.ModelPath = cfg.DNNModelPath
		objCfg.ConfigPath = cfg.DNNConfigPath
		objects, err := dnnobjects.New(objCfg)
		if err != nil {
			if resCfg.Faces != nil {
				_ = resCfg.Faces.Close(ctx)
			}
			return nil, fmt.Errorf("unable to initialize the object detector: %w", err)
		}
		resCfg.Objects = objects
		logger.Infof(ctx, "object detector: %s", objects)
	}

	return detector.NewResources(resCfg), nil
}
