package config

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/fxpipeline/watermark"
)

// WatermarkSettings is the persisted form of the watermark. The margin is
// kept in density-independent units, the overlay as a path.
type WatermarkSettings struct {
	ImagePath    string             `yaml:"image_path"`
	Location     watermark.Location `yaml:"location"`
	MarginDP     float64            `yaml:"margin_dp"`
	Density      float64            `yaml:"density"`
	SizeFraction float64            `yaml:"size_fraction"`
}

func DefaultWatermarkSettings() WatermarkSettings {
	return WatermarkSettings{
		Location:     watermark.DefaultLocation,
		MarginDP:     watermark.DefaultMarginDP,
		Density:      1,
		SizeFraction: watermark.DefaultSizeFraction,
	}
}

func (s WatermarkSettings) Validate() error {
	if _, err := watermark.ParseLocation(string(s.Location)); err != nil {
		return err
	}
	if s.Density < 0 {
		return fmt.Errorf("density must not be negative, but is %v", s.Density)
	}
	if s.SizeFraction < 0 || s.SizeFraction > 1 {
		return fmt.Errorf("size_fraction must be within [0, 1], but is %v", s.SizeFraction)
	}
	return nil
}

// MarginPx converts the margin into pixels. A zero density is treated as 1.
func (s WatermarkSettings) MarginPx() float64 {
	density := s.Density
	if density == 0 {
		density = 1
	}
	return s.MarginDP * density
}

// Resolve loads the overlay (falling back to the built-in one) and
// produces the spec the compositor works with.
func (s WatermarkSettings) Resolve(ctx context.Context) watermark.Spec {
	location := s.Location
	if location == watermark.LocationUndefined {
		location = watermark.DefaultLocation
	}
	return watermark.Spec{
		Overlay:      watermark.LoadOverlayOrDefault(ctx, s.ImagePath),
		Location:     location,
		MarginPx:     s.MarginPx(),
		SizeFraction: watermark.ClampSizeFraction(s.SizeFraction),
	}
}
