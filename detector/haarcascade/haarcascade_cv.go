//go:build with_cv
// +build with_cv

package haarcascade

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/helpers/closuresignaler"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/xsync"
	"gocv.io/x/gocv"
)

type Config struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
}

func DefaultConfig() Config {
	return Config{
		ScaleFactor:  1.1,
		MinNeighbors: 3,
		MinSize:      image.Pt(24, 24),
	}
}

// Faces is a face-box detector. The classifier is not safe for concurrent
// use, so detections are run one at a time.
type Faces struct {
	*closuresignaler.ClosureSignaler
	Config     Config
	Classifier gocv.CascadeClassifier
	Locker     xsync.Mutex
}

var _ detector.Service[[]detector.Face] = (*Faces)(nil)

// NewFromFile loads the classifier from a cascade XML file.
func NewFromFile(path string, cfg Config) (*Faces, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("unable to load the classifier XML from '%s'", path)
	}
	return &Faces{
		ClosureSignaler: closuresignaler.New(),
		Config:          cfg,
		Classifier:      classifier,
	}, nil
}

// New loads the classifier from the cascade XML contents.
func New(classifierXML []byte, cfg Config) (*Faces, error) {
	tempFile, err := os.CreateTemp("", "fxpipeline-haar-cascade-classifier-*")
	if err != nil {
		return nil, fmt.Errorf("unable to create a temporary file: %w", err)
	}
	defer os.Remove(tempFile.Name())
	_, err = io.Copy(tempFile, bytes.NewReader(classifierXML))
	tempFile.Close()
	if err != nil {
		return nil, fmt.Errorf("unable to write the classifier XML into file '%s': %w", tempFile.Name(), err)
	}
	return NewFromFile(tempFile.Name(), cfg)
}

func (f *Faces) String() string {
	return "HaarCascadeFaces"
}

func (f *Faces) Submit(
	ctx context.Context,
	img *image.RGBA,
	callback func([]detector.Face, error),
) {
	detector.NewFuncService(f.String(), f.detect).Submit(ctx, img, callback)
}

func (f *Faces) detect(
	ctx context.Context,
	img *image.RGBA,
) (_ret []detector.Face, _err error) {
	logger.Tracef(ctx, "detect")
	defer func() { logger.Tracef(ctx, "/detect: %d %v", len(_ret), _err) }()
	if f.IsClosed() {
		return nil, detector.ErrClosed
	}

	rgba, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("unable to convert the image to a matrix: %w", err)
	}
	defer rgba.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(rgba, &gray, gocv.ColorRGBAToGray); err != nil {
		return nil, fmt.Errorf("unable to convert the image to grayscale: %w", err)
	}

	var rects []image.Rectangle
	f.Locker.Do(ctx, func() {
		if f.IsClosed() {
			return
		}
		rects = f.Classifier.DetectMultiScaleWithParams(
			gray,
			f.Config.ScaleFactor,
			f.Config.MinNeighbors,
			0,
			f.Config.MinSize,
			image.Point{},
		)
	})

	faces := make([]detector.Face, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, detector.Face{
			Box:        r.Add(img.Rect.Min),
			Confidence: 1,
		})
	}
	return faces, nil
}

func (f *Faces) Close(ctx context.Context) error {
	f.ClosureSignaler.Close(ctx)
	return xsync.DoR1(ctx, &f.Locker, func() error {
		return f.Classifier.Close()
	})
}
