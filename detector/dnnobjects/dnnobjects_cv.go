//go:build with_cv
// +build with_cv

package dnnobjects

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/helpers/closuresignaler"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/xsync"
	"gocv.io/x/gocv"
)

type Config struct {
	ModelPath           string
	ConfigPath          string
	InputSize           image.Point
	ConfidenceThreshold float32
	Labels              map[int]string
}

func DefaultConfig() Config {
	return Config{
		InputSize:           image.Pt(300, 300),
		ConfidenceThreshold: 0.5,
		Labels:              COCOLabels,
	}
}

type Objects struct {
	*closuresignaler.ClosureSignaler
	Config Config
	Net    gocv.Net
	Locker xsync.Mutex
}

var _ detector.Service[[]detector.Object] = (*Objects)(nil)

func New(cfg Config) (*Objects, error) {
	for _, path := range []string{cfg.ModelPath, cfg.ConfigPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("unable to access '%s': %w", path, err)
		}
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("unable to load the network from '%s' (config: '%s')", cfg.ModelPath, cfg.ConfigPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("unable to set the preferable backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("unable to set the preferable target: %w", err)
	}
	if cfg.Labels == nil {
		cfg.Labels = COCOLabels
	}
	return &Objects{
		ClosureSignaler: closuresignaler.New(),
		Config:          cfg,
		Net:             net,
	}, nil
}

func (o *Objects) String() string {
	return "DNNObjects"
}

func (o *Objects) Submit(
	ctx context.Context,
	img *image.RGBA,
	callback func([]detector.Object, error),
) {
	detector.NewFuncService(o.String(), o.detect).Submit(ctx, img, callback)
}

func (o *Objects) detect(
	ctx context.Context,
	img *image.RGBA,
) (_ret []detector.Object, _err error) {
	logger.Tracef(ctx, "detect")
	defer func() { logger.Tracef(ctx, "/detect: %d %v", len(_ret), _err) }()
	if o.IsClosed() {
		return nil, detector.ErrClosed
	}

	rgba, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("unable to convert the image to a matrix: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	if err := gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR); err != nil {
		return nil, fmt.Errorf("unable to convert the image to BGR: %w", err)
	}

	blob := gocv.BlobFromImage(bgr, 1.0/127.5, o.Config.InputSize, gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	var output gocv.Mat
	o.Locker.Do(ctx, func() {
		o.Net.SetInput(blob, "")
		output = o.Net.Forward("")
	})
	defer output.Close()

	w, h := float32(bgr.Cols()), float32(bgr.Rows())
	detections := output.Reshape(1, output.Total()/7)
	defer detections.Close()

	var objects []detector.Object
	for i := 0; i < detections.Rows(); i++ {
		confidence := detections.GetFloatAt(i, 2)
		if confidence <= o.Config.ConfidenceThreshold {
			continue
		}
		classID := int(detections.GetFloatAt(i, 1))
		box := image.Rect(
			int(detections.GetFloatAt(i, 3)*w),
			int(detections.GetFloatAt(i, 4)*h),
			int(detections.GetFloatAt(i, 5)*w),
			int(detections.GetFloatAt(i, 6)*h),
		).Intersect(image.Rect(0, 0, bgr.Cols(), bgr.Rows()))
		if box.Empty() {
			continue
		}
		objects = append(objects, detector.Object{
			Box: box.Add(img.Rect.Min),
			Labels: []detector.Label{{
				Text:       ClassLabel(o.Config.Labels, classID),
				Confidence: confidence,
			}},
		})
	}
	return objects, nil
}

func (o *Objects) Close(ctx context.Context) error {
	o.ClosureSignaler.Close(ctx)
	return xsync.DoR1(ctx, &o.Locker, func() error {
		return o.Net.Close()
	})
}
