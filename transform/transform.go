// Package transform contains the image-to-image effects applied to frames.
//
// Every transform follows the same contract: it accepts any frame and
// returns exactly one non-nil frame. If the effect cannot be applied (the
// detector failed, timed out or found nothing; the frame is malformed; the
// implementation panicked) the input frame itself is returned unmodified.
// The input frame is never modified in place: effects are drawn on a copy.
package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaionaro-go/fxpipeline/frame"
)

type Abstract interface {
	fmt.Stringer
	Kind() Kind
	Apply(ctx context.Context, in *frame.Frame) *frame.Frame
}

type Kind int

const (
	KindUndefined = Kind(iota)
	KindFaceOutline
	KindBackgroundBlur
	KindFaceMesh
	KindPoseDetection
	KindObjectDetection
	KindImageLabeling
	KindWatermark
	EndOfKind
)

// Kinds returns all the kinds in the order they are applied to a frame.
func Kinds() []Kind {
	result := make([]Kind, 0, int(EndOfKind)-1)
	for k := KindUndefined + 1; k < EndOfKind; k++ {
		result = append(result, k)
	}
	return result
}

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindFaceOutline:
		return "face_outline"
	case KindBackgroundBlur:
		return "background_blur"
	case KindFaceMesh:
		return "face_mesh"
	case KindPoseDetection:
		return "pose_detection"
	case KindObjectDetection:
		return "object_detection"
	case KindImageLabeling:
		return "image_labeling"
	case KindWatermark:
		return "watermark"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return KindUndefined, fmt.Errorf("unknown transform kind '%s'", s)
}
