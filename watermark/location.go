package watermark

import (
	"fmt"
	"strings"
)

type Location string

const (
	LocationUndefined   = Location("")
	LocationTopLeft     = Location("top_left")
	LocationTopRight    = Location("top_right")
	LocationCenter      = Location("center")
	LocationBottomLeft  = Location("bottom_left")
	LocationBottomRight = Location("bottom_right")
)

const DefaultLocation = LocationBottomLeft

func Locations() []Location {
	return []Location{
		LocationTopLeft,
		LocationTopRight,
		LocationCenter,
		LocationBottomLeft,
		LocationBottomRight,
	}
}

func (l Location) String() string {
	return string(l)
}

func ParseLocation(s string) (Location, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	if s == "" {
		return DefaultLocation, nil
	}
	for _, l := range Locations() {
		if string(l) == s {
			return l, nil
		}
	}
	return LocationUndefined, fmt.Errorf("unknown watermark location '%s'", s)
}

func (l *Location) UnmarshalText(b []byte) error {
	v, err := ParseLocation(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (l Location) MarshalText() ([]byte, error) {
	return []byte(l), nil
}
