package dozer

import (
	"fmt"
	"strings"
)

const (
	PlatformAndroid = "android"

	ModeDebug   = "debug"
	ModeRelease = "release"
)

// Target is the platform and build mode pair that a build
// is invoked with, e.g. "android debug".
type Target struct {
	Platform string `json:"platform"`
	Mode     string `json:"mode"`
}

// ParseTarget builds a Target from its platform and mode arguments.
func ParseTarget(platform, mode string) (Target, error) {
	t := Target{
		Platform: strings.ToLower(strings.TrimSpace(platform)),
		Mode:     strings.ToLower(strings.TrimSpace(mode)),
	}

	return t, ValidateTarget(t)
}

func (t Target) String() string {
	return t.Platform + " " + t.Mode
}

func ValidateTarget(t Target) error {
	if t.Platform != PlatformAndroid {
		return fmt.Errorf("unsupported target platform %q", t.Platform)
	}

	switch t.Mode {
	case ModeDebug, ModeRelease:
	default:
		return fmt.Errorf("unsupported build mode %q", t.Mode)
	}

	return nil
}
