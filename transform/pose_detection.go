package transform

import (
	"context"
	"fmt"
	"image/color"

	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/frame"
)

const DefaultPoseMinConfidence = 0.5

type poseBone struct {
	From detector.PoseLandmarkType
	To   detector.PoseLandmarkType
}

var poseSkeleton = []poseBone{
	{detector.PoseLandmarkLeftShoulder, detector.PoseLandmarkRightShoulder},
	{detector.PoseLandmarkLeftShoulder, detector.PoseLandmarkLeftElbow},
	{detector.PoseLandmarkLeftElbow, detector.PoseLandmarkLeftWrist},
	{detector.PoseLandmarkRightShoulder, detector.PoseLandmarkRightElbow},
	{detector.PoseLandmarkRightElbow, detector.PoseLandmarkRightWrist},
	{detector.PoseLandmarkLeftShoulder, detector.PoseLandmarkLeftHip},
	{detector.PoseLandmarkRightShoulder, detector.PoseLandmarkRightHip},
	{detector.PoseLandmarkLeftHip, detector.PoseLandmarkRightHip},
	{detector.PoseLandmarkLeftHip, detector.PoseLandmarkLeftKnee},
	{detector.PoseLandmarkLeftKnee, detector.PoseLandmarkLeftAnkle},
	{detector.PoseLandmarkRightHip, detector.PoseLandmarkRightKnee},
	{detector.PoseLandmarkRightKnee, detector.PoseLandmarkRightAnkle},
}

// PoseDetection draws the skeleton of every detected body. Landmarks below
// MinConfidence are ignored.
type PoseDetection struct {
	Detector      *detector.Adapter[[]detector.Pose]
	MinConfidence float32
	JointColor    color.RGBA
	BoneColor     color.RGBA
}

var _ Abstract = (*PoseDetection)(nil)

func NewPoseDetection(d *detector.Adapter[[]detector.Pose]) *PoseDetection {
	return &PoseDetection{
		Detector:      d,
		MinConfidence: DefaultPoseMinConfidence,
		JointColor:    color.RGBA{R: 0xff, G: 0xff, A: 0xff},
		BoneColor:     color.RGBA{G: 0xc0, B: 0xff, A: 0xff},
	}
}

func (t *PoseDetection) Kind() Kind {
	return KindPoseDetection
}

func (t *PoseDetection) String() string {
	return fmt.Sprintf("PoseDetection(%s)", t.Detector)
}

func (t *PoseDetection) Apply(ctx context.Context, in *frame.Frame) *frame.Frame {
	return guard(ctx, t, in, func(ctx context.Context) (*frame.Frame, error) {
		poses, err := t.Detector.Detect(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("unable to detect poses: %w", err)
		}
		if len(poses) == 0 {
			return in, nil
		}
		out := in.Clone()
		img := out.Image
		radius := max(2, out.Width()/240)
		for _, pose := range poses {
			for _, bone := range poseSkeleton {
				from, ok0 := pose.Landmark(bone.From)
				to, ok1 := pose.Landmark(bone.To)
				if !ok0 || !ok1 || from.Confidence < t.MinConfidence || to.Confidence < t.MinConfidence {
					continue
				}
				drawLine(img, clampPoint(img, from.Position), clampPoint(img, to.Position), radius, t.BoneColor)
			}
			for _, l := range pose.Landmarks {
				if l.Confidence < t.MinConfidence {
					continue
				}
				fillCircle(img, l.Position, radius, t.JointColor)
			}
		}
		return out, nil
	})
}
