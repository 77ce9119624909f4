package config

import (
	"fmt"
	"strings"

	"github.com/xaionaro-go/fxpipeline/transform"
)

// Effects tells which transforms are enabled. It is a value: a loaded
// configuration is never modified in place, a reload produces a new one.
type Effects struct {
	FaceOutline     bool `yaml:"face_outline"`
	BackgroundBlur  bool `yaml:"background_blur"`
	FaceMesh        bool `yaml:"face_mesh"`
	PoseDetection   bool `yaml:"pose_detection"`
	ObjectDetection bool `yaml:"object_detection"`
	ImageLabeling   bool `yaml:"image_labeling"`
	Watermark       bool `yaml:"watermark"`
}

func DefaultEffects() Effects {
	return Effects{
		FaceOutline:    true,
		BackgroundBlur: true,
		Watermark:      true,
	}
}

func (e Effects) IsEnabled(kind transform.Kind) bool {
	switch kind {
	case transform.KindFaceOutline:
		return e.FaceOutline
	case transform.KindBackgroundBlur:
		return e.BackgroundBlur
	case transform.KindFaceMesh:
		return e.FaceMesh
	case transform.KindPoseDetection:
		return e.PoseDetection
	case transform.KindObjectDetection:
		return e.ObjectDetection
	case transform.KindImageLabeling:
		return e.ImageLabeling
	case transform.KindWatermark:
		return e.Watermark
	default:
		return false
	}
}

// With returns a copy with the given transform enabled or disabled.
func (e Effects) With(kind transform.Kind, enabled bool) Effects {
	switch kind {
	case transform.KindFaceOutline:
		e.FaceOutline = enabled
	case transform.KindBackgroundBlur:
		e.BackgroundBlur = enabled
	case transform.KindFaceMesh:
		e.FaceMesh = enabled
	case transform.KindPoseDetection:
		e.PoseDetection = enabled
	case transform.KindObjectDetection:
		e.ObjectDetection = enabled
	case transform.KindImageLabeling:
		e.ImageLabeling = enabled
	case transform.KindWatermark:
		e.Watermark = enabled
	}
	return e
}

// Enabled lists the enabled transforms in the order they are applied.
func (e Effects) Enabled() []transform.Kind {
	var result []transform.Kind
	for _, kind := range transform.Kinds() {
		if e.IsEnabled(kind) {
			result = append(result, kind)
		}
	}
	return result
}

func (e Effects) String() string {
	var names []string
	for _, kind := range e.Enabled() {
		names = append(names, kind.String())
	}
	return fmt.Sprintf("Effects(%s)", strings.Join(names, ","))
}

// ParseEffects parses a comma-separated list of transform kinds into the
// set of enabled effects. "none" and the empty string enable nothing.
func ParseEffects(s string) (Effects, error) {
	var result Effects
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return result, nil
	}
	for _, item := range strings.Split(s, ",") {
		kind, err := transform.ParseKind(item)
		if err != nil {
			return Effects{}, err
		}
		result = result.With(kind, true)
	}
	return result, nil
}

// ApplyFaceExclusivity disables the face outline when the face mesh is
// enabled: the two effects draw over the same area. The reverse is not
// enforced.
func ApplyFaceExclusivity(e Effects) Effects {
	if e.FaceMesh {
		e.FaceOutline = false
	}
	return e
}
