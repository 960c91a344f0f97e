package tools

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

const (
	// MaxDimension bounds width and height in pixels.
	MaxDimension = 4096
	// MaxPixelArea bounds width*height.
	MaxPixelArea = MaxDimension * MaxDimension
	// MaxDurationSeconds bounds every time offset and duration.
	MaxDurationSeconds = 3600
	// MaxPromptLength bounds free text handed to generative effects.
	MaxPromptLength = 100
	// MaxLayers bounds the layer composition tool.
	MaxLayers = 5
)

var hexColor = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

var gravities = []string{
	"auto", "center", "face", "faces",
	"north", "south", "east", "west",
	"north_east", "north_west", "south_east", "south_west",
}

func checkRange(errs *domain.ValidationErrors, field string, v, min, max int) {
	if v < min || v > max {
		errs.Add(field, "must be between %d and %d, got %d", min, max, v)
	}
}

func checkRangeFloat(errs *domain.ValidationErrors, field string, v, min, max float64) {
	if v < min || v > max {
		errs.Add(field, "must be between %g and %g, got %g", min, max, v)
	}
}

func checkEnum(errs *domain.ValidationErrors, field, v string, allowed ...string) {
	if !slices.Contains(allowed, v) {
		errs.Add(field, "must be one of %s, got %q", strings.Join(allowed, ", "), v)
	}
}

func checkDimensions(errs *domain.ValidationErrors, width, height int) {
	checkRange(errs, "width", width, 0, MaxDimension)
	checkRange(errs, "height", height, 0, MaxDimension)
	if width > 0 && height > 0 && width*height > MaxPixelArea {
		errs.Add("height", "width*height must not exceed %d pixels", MaxPixelArea)
	}
}

func checkText(errs *domain.ValidationErrors, field, v string) {
	v = strings.TrimSpace(v)
	switch n := utf8.RuneCountInString(v); {
	case n == 0:
		errs.Add(field, "is required")
	case n > MaxPromptLength:
		errs.Add(field, "must be at most %d characters", MaxPromptLength)
	}
}

func checkSeconds(errs *domain.ValidationErrors, field string, v float64) {
	checkRangeFloat(errs, field, v, 0, MaxDurationSeconds)
}
