package detector

import (
	"fmt"
	"image"

	"github.com/xaionaro-go/typing"
)

// Face is a detected face bounding box in frame coordinates.
type Face struct {
	Box        image.Rectangle
	Confidence float32
}

// FaceMesh is the set of landmark points of a single face.
type FaceMesh struct {
	Points []image.Point
}

type PoseLandmarkType int

const (
	PoseLandmarkNose = PoseLandmarkType(iota)
	PoseLandmarkLeftShoulder
	PoseLandmarkRightShoulder
	PoseLandmarkLeftElbow
	PoseLandmarkRightElbow
	PoseLandmarkLeftWrist
	PoseLandmarkRightWrist
	PoseLandmarkLeftHip
	PoseLandmarkRightHip
	PoseLandmarkLeftKnee
	PoseLandmarkRightKnee
	PoseLandmarkLeftAnkle
	PoseLandmarkRightAnkle
	EndOfPoseLandmarkType
)

func (t PoseLandmarkType) String() string {
	switch t {
	case PoseLandmarkNose:
		return "nose"
	case PoseLandmarkLeftShoulder:
		return "left_shoulder"
	case PoseLandmarkRightShoulder:
		return "right_shoulder"
	case PoseLandmarkLeftElbow:
		return "left_elbow"
	case PoseLandmarkRightElbow:
		return "right_elbow"
	case PoseLandmarkLeftWrist:
		return "left_wrist"
	case PoseLandmarkRightWrist:
		return "right_wrist"
	case PoseLandmarkLeftHip:
		return "left_hip"
	case PoseLandmarkRightHip:
		return "right_hip"
	case PoseLandmarkLeftKnee:
		return "left_knee"
	case PoseLandmarkRightKnee:
		return "right_knee"
	case PoseLandmarkLeftAnkle:
		return "left_ankle"
	case PoseLandmarkRightAnkle:
		return "right_ankle"
	default:
		return fmt.Sprintf("unknown_landmark_%d", int(t))
	}
}

type PoseLandmark struct {
	Type       PoseLandmarkType
	Position   image.Point
	Confidence float32
}

// Pose is a single detected body.
type Pose struct {
	Landmarks []PoseLandmark
}

// Landmark returns the landmark of the given type, if detected.
func (p Pose) Landmark(t PoseLandmarkType) (PoseLandmark, bool) {
	for _, l := range p.Landmarks {
		if l.Type == t {
			return l, true
		}
	}
	return PoseLandmark{}, false
}

// Label is a scene label (image classification result).
type Label struct {
	Text       string
	Confidence float32
}

func (l Label) String() string {
	return fmt.Sprintf("%s(%.2f)", l.Text, l.Confidence)
}

// Object is a detected object with its labels.
type Object struct {
	Box        image.Rectangle
	Labels     []Label
	TrackingID typing.Optional[int]
}

// SegmentationMask holds one foreground confidence value per pixel, row by
// row.
type SegmentationMask struct {
	Width      int
	Height     int
	Confidence []float32
}

func NewSegmentationMask(width, height int) *SegmentationMask {
	return &SegmentationMask{
		Width:      width,
		Height:     height,
		Confidence: make([]float32, width*height),
	}
}

func (m *SegmentationMask) At(x, y int) float32 {
	return m.Confidence[y*m.Width+x]
}

func (m *SegmentationMask) Set(x, y int, v float32) {
	m.Confidence[y*m.Width+x] = v
}

// Fill sets all values of the mask to v.
func (m *SegmentationMask) Fill(v float32) *SegmentationMask {
	for i := range m.Confidence {
		m.Confidence[i] = v
	}
	return m
}

func (m *SegmentationMask) Validate() error {
	if m == nil {
		return fmt.Errorf("the mask is nil")
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("invalid mask size %dx%d", m.Width, m.Height)
	}
	if len(m.Confidence) != m.Width*m.Height {
		return fmt.Errorf("the mask has %d values, expected %d", len(m.Confidence), m.Width*m.Height)
	}
	return nil
}
